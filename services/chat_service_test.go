package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"brandmatch_server/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	match, inf, _ := env.acceptedMatch(t)

	msg, err := env.chat.SendMessage(ctx, match.ID, inf.ID, SendMessageInput{Content: "  hello there  "})
	require.NoError(t, err)
	assert.Equal(t, "hello there", msg.Content)
	assert.Equal(t, models.MessageTypeText, msg.Type)
	assert.Equal(t, inf.ID, msg.SenderID)
	assert.False(t, msg.Read)
	assert.True(t, strings.HasSuffix(msg.SortKey, "#"+msg.ID))

	assert.Equal(t, []string{MatchRoom(match.ID)}, env.notifier.rooms(EventNewMessage))
	subjects := env.events.Subjects()
	assert.Equal(t, models.SubjectMessageCreated, subjects[len(subjects)-1])
	assert.Equal(t, 1, env.client.ItemCount(models.MessagesTable))
}

func TestSendMessage_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	match, inf, _ := env.acceptedMatch(t)
	outsider := env.influencer(t, "zed", 10, 0)

	tests := []struct {
		name   string
		sender string
		in     SendMessageInput
		want   error
	}{
		{"empty", inf.ID, SendMessageInput{Content: "   "}, models.ErrInvalidInput},
		{"too long", inf.ID, SendMessageInput{Content: strings.Repeat("é", maxMessageLength+1)}, models.ErrInvalidInput},
		{"unknown type", inf.ID, SendMessageInput{Content: "hi", Type: "video"}, models.ErrInvalidInput},
		{"not a participant", outsider.ID, SendMessageInput{Content: "hi"}, models.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.chat.SendMessage(ctx, match.ID, tt.sender, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := env.chat.SendMessage(ctx, match.ID, inf.ID, SendMessageInput{Content: strings.Repeat("é", maxMessageLength)})
	assert.NoError(t, err, "limit counts characters, not bytes")
}

func TestSendMessage_RequiresAcceptedMatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	inf := env.influencer(t, "ana", 100, 0)
	co := env.company(t, "acme")
	c := env.campaign(t, co.ID, "Launch", models.CampaignRequirements{})

	res, err := env.swipes.RecordSwipe(ctx, inf.ID, SwipeInput{TargetID: c.ID, Type: models.SwipeTypeLike})
	require.NoError(t, err)

	_, err = env.chat.SendMessage(ctx, res.Match.ID, inf.ID, SendMessageInput{Content: "hi"})
	assert.ErrorIs(t, err, models.ErrConflict)
	assert.Equal(t, 0, env.client.ItemCount(models.MessagesTable))
}

func TestListMessages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	match, inf, co := env.acceptedMatch(t)

	var sent []*models.Message
	for i, sender := range []string{inf.ID, co.ID, inf.ID, co.ID} {
		env.advance(time.Second)
		msg, err := env.chat.SendMessage(ctx, match.ID, sender, SendMessageInput{Content: strings.Repeat("x", i+1)})
		require.NoError(t, err)
		sent = append(sent, msg)
	}

	all, err := env.chat.ListMessages(ctx, match.ID, co.ID, 0, nil)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, sent[3].ID, all[0].ID, "newest first")
	assert.Equal(t, sent[0].ID, all[3].ID)

	page, err := env.chat.ListMessages(ctx, match.ID, co.ID, 2, nil)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, sent[2].ID, page[1].ID)

	before := sent[2].Timestamp
	older, err := env.chat.ListMessages(ctx, match.ID, inf.ID, 10, &before)
	require.NoError(t, err)
	require.Len(t, older, 2)
	assert.Equal(t, sent[1].ID, older[0].ID)
	assert.Equal(t, sent[0].ID, older[1].ID)

	outsider := env.company(t, "globex")
	_, err = env.chat.ListMessages(ctx, match.ID, outsider.ID, 10, nil)
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestMarkRead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	match, inf, co := env.acceptedMatch(t)

	for _, sender := range []string{inf.ID, inf.ID, co.ID} {
		env.advance(time.Second)
		_, err := env.chat.SendMessage(ctx, match.ID, sender, SendMessageInput{Content: "hi"})
		require.NoError(t, err)
	}

	marked, err := env.chat.MarkRead(ctx, match.ID, co.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, marked, "only the counterpart's messages")

	marked, err = env.chat.MarkRead(ctx, match.ID, co.ID)
	require.NoError(t, err)
	assert.Zero(t, marked)

	messages, err := env.chat.ListMessages(ctx, match.ID, co.ID, 0, nil)
	require.NoError(t, err)
	for _, m := range messages {
		assert.Equal(t, m.SenderID == inf.ID, m.Read, m.ID)
	}
}

func TestConversations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	first, inf, co := env.acceptedMatch(t)

	// second accepted match with a different company, and a silent third
	other := env.company(t, "globex")
	oc := env.campaign(t, other.ID, "Autumn", models.CampaignRequirements{})
	_, err := env.swipes.RecordSwipe(ctx, inf.ID, SwipeInput{TargetID: oc.ID, Type: models.SwipeTypeLike})
	require.NoError(t, err)
	res, err := env.swipes.RecordSwipe(ctx, other.ID, SwipeInput{TargetID: inf.ID, Type: models.SwipeTypeLike, CampaignID: oc.ID})
	require.NoError(t, err)
	second := res.Match

	silent := env.company(t, "initech")
	sc := env.campaign(t, silent.ID, "Quiet", models.CampaignRequirements{})
	_, err = env.swipes.RecordSwipe(ctx, inf.ID, SwipeInput{TargetID: sc.ID, Type: models.SwipeTypeLike})
	require.NoError(t, err)
	_, err = env.swipes.RecordSwipe(ctx, silent.ID, SwipeInput{TargetID: inf.ID, Type: models.SwipeTypeLike, CampaignID: sc.ID})
	require.NoError(t, err)

	env.advance(time.Second)
	_, err = env.chat.SendMessage(ctx, first.ID, co.ID, SendMessageInput{Content: "one"})
	require.NoError(t, err)
	env.advance(time.Second)
	_, err = env.chat.SendMessage(ctx, second.ID, other.ID, SendMessageInput{Content: "two"})
	require.NoError(t, err)
	env.advance(time.Second)
	_, err = env.chat.SendMessage(ctx, first.ID, co.ID, SendMessageInput{Content: "three"})
	require.NoError(t, err)

	conversations, err := env.chat.Conversations(ctx, inf.ID)
	require.NoError(t, err)
	require.Len(t, conversations, 2)

	assert.Equal(t, first.ID, conversations[0].ID)
	assert.Equal(t, "three", conversations[0].LastMessage.Content)
	assert.Equal(t, 2, conversations[0].UnreadCount)
	require.NotNil(t, conversations[0].MatchedProfile)
	assert.Equal(t, co.ID, conversations[0].MatchedProfile.ID)

	assert.Equal(t, second.ID, conversations[1].ID)
	assert.Equal(t, 1, conversations[1].UnreadCount)

	mine, err := env.chat.Conversations(ctx, co.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Zero(t, mine[0].UnreadCount, "own messages are never unread")
}
