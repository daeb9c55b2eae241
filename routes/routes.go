package routes

import (
	"net/http"

	"brandmatch_server/controllers"
	"brandmatch_server/services"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Services bundles everything the HTTP layer calls into
type Services struct {
	Auth      *services.AuthService
	Profiles  *services.UserProfileService
	Instagram *services.InstagramService
	Campaigns *services.CampaignService
	Discovery *services.DiscoveryService
	Swipes    *services.SwipeService
	Matches   *services.MatchService
	Chat      *services.ChatService
	Media     *services.MediaService
}

// NewRouter builds the application router: public routes, /api/auth, and the
// bearer-protected /api routes.
func NewRouter(svc Services, logger *zap.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(controllers.RequestIDMiddleware, controllers.RecoverMiddleware(logger), controllers.LoggingMiddleware(logger))
	RegisterRoutes(r)

	api := r.PathPrefix("/api").Subrouter()
	protected := api.NewRoute().Subrouter()
	protected.Use(controllers.AuthMiddleware(svc.Auth))

	RegisterAuthRoutes(api, protected, svc.Auth, logger)
	RegisterUserProfileRoutes(protected, svc.Profiles, logger)
	RegisterInstagramRoutes(api, protected, svc.Instagram, logger)
	RegisterCampaignRoutes(protected, svc.Campaigns, logger)
	RegisterDiscoveryRoutes(protected, svc.Discovery, svc.Swipes, logger)
	RegisterMatchRoutes(protected, svc.Matches, svc.Chat, logger)
	if svc.Media != nil {
		RegisterMediaRoutes(protected, svc.Media, logger)
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		controllers.WriteError(w, http.StatusNotFound, "route not found")
	})
	return r
}

// RegisterRoutes sets up the public routes
func RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", controllers.HealthCheckHandler).Methods("GET")
	r.HandleFunc("/", controllers.WelcomeHandler).Methods("GET")
	r.HandleFunc("/privacy-policy", PrivacyPolicyHandler).Methods("GET")
}

// RegisterAuthRoutes sets up /api/auth
func RegisterAuthRoutes(public, protected *mux.Router, authService *services.AuthService, logger *zap.Logger) {
	controller := controllers.NewAuthController(authService, logger)

	public.HandleFunc("/auth/register", controller.Register).Methods("POST")
	public.HandleFunc("/auth/login", controller.Login).Methods("POST")
	public.HandleFunc("/auth/password-reset", controller.RequestPasswordReset).Methods("POST")
	public.HandleFunc("/auth/password-reset/confirm", controller.ResetPassword).Methods("POST")
	protected.HandleFunc("/auth/signout", controller.SignOut).Methods("POST")
}

// RegisterUserProfileRoutes sets up /api/profiles
func RegisterUserProfileRoutes(r *mux.Router, profileService *services.UserProfileService, logger *zap.Logger) {
	controller := controllers.NewUserProfileController(profileService, logger)

	r.HandleFunc("/profiles/me", controller.GetMyProfile).Methods("GET")
	r.HandleFunc("/profiles/me", controller.UpdateMyProfile).Methods("PATCH")
	r.HandleFunc("/profiles/me", controller.DeleteMyProfile).Methods("DELETE")
	r.HandleFunc("/profiles/me/instagram-handle", controller.SaveInstagramHandle).Methods("PUT")
	r.HandleFunc("/profiles/{userId}", controller.GetUserProfileByID).Methods("GET")
}

// RegisterInstagramRoutes sets up /api/instagram. The OAuth callback is public.
func RegisterInstagramRoutes(public, protected *mux.Router, instagramService *services.InstagramService, logger *zap.Logger) {
	controller := controllers.NewInstagramController(instagramService, logger)

	public.HandleFunc("/instagram/callback", controller.Callback).Methods("GET")
	protected.HandleFunc("/instagram/auth-url", controller.AuthURL).Methods("GET")
	protected.HandleFunc("/instagram/account", controller.Account).Methods("GET")
	protected.HandleFunc("/instagram/account", controller.Disconnect).Methods("DELETE")
	protected.HandleFunc("/instagram/sync", controller.Sync).Methods("POST")
}

// RegisterCampaignRoutes sets up /api/campaigns
func RegisterCampaignRoutes(r *mux.Router, campaignService *services.CampaignService, logger *zap.Logger) {
	controller := controllers.NewCampaignController(campaignService, logger)

	r.HandleFunc("/campaigns", controller.Create).Methods("POST")
	r.HandleFunc("/campaigns/mine", controller.ListMine).Methods("GET")
	r.HandleFunc("/campaigns/company/{companyId}", controller.ListByCompany).Methods("GET")
	r.HandleFunc("/campaigns/{campaignId}", controller.Get).Methods("GET")
	r.HandleFunc("/campaigns/{campaignId}", controller.Update).Methods("PUT")
	r.HandleFunc("/campaigns/{campaignId}/status", controller.SetStatus).Methods("PATCH")
}

// RegisterDiscoveryRoutes sets up /api/discover and /api/swipes
func RegisterDiscoveryRoutes(r *mux.Router, discoveryService *services.DiscoveryService, swipeService *services.SwipeService, logger *zap.Logger) {
	discovery := controllers.NewDiscoveryController(discoveryService, logger)
	swipes := controllers.NewSwipeController(swipeService, logger)

	r.HandleFunc("/discover", discovery.Feed).Methods("GET")
	r.HandleFunc("/swipes", swipes.RecordSwipe).Methods("POST")
	r.HandleFunc("/swipes/likes", swipes.ListLikes).Methods("GET")
}

// RegisterMatchRoutes sets up /api/matches and /api/conversations
func RegisterMatchRoutes(r *mux.Router, matchService *services.MatchService, chatService *services.ChatService, logger *zap.Logger) {
	matches := controllers.NewMatchController(matchService, logger)
	chat := controllers.NewChatController(chatService, logger)

	r.HandleFunc("/matches", matches.List).Methods("GET")
	r.HandleFunc("/matches/{matchId}", matches.Get).Methods("GET")
	r.HandleFunc("/matches/{matchId}/status", matches.UpdateStatus).Methods("PATCH")
	r.HandleFunc("/matches/{matchId}/messages", chat.HandleGetMessages).Methods("GET")
	r.HandleFunc("/matches/{matchId}/messages", chat.HandleSendMessage).Methods("POST")
	r.HandleFunc("/matches/{matchId}/read", chat.HandleMarkMessagesAsRead).Methods("POST")
	r.HandleFunc("/conversations", chat.HandleConversations).Methods("GET")
}

// RegisterMediaRoutes sets up /api/media
func RegisterMediaRoutes(r *mux.Router, mediaService *services.MediaService, logger *zap.Logger) {
	controller := controllers.NewMediaController(mediaService, logger)

	r.HandleFunc("/media/upload-url", controller.GeneratePresignedURL).Methods("POST")
	r.HandleFunc("/media/read-url", controller.GetPresignedReadURL).Methods("POST")
}
