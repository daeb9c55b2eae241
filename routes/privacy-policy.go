package routes

import (
	"fmt"
	"net/http"
)

// PrivacyPolicyHandler serves the privacy policy linked from the Instagram app settings
func PrivacyPolicyHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")

	html := `<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
	<title>BrandMatch Privacy Policy</title>
</head>
<body>
	<h1>Privacy Policy</h1>
	<p>BrandMatch connects influencers with companies running campaigns.</p>
	<p>When you link Instagram we read your username, media and engagement counts to compute audience statistics shown to companies. We never post on your behalf.</p>
	<p>You can disconnect Instagram or delete your account at any time from the app settings; deleting the account removes your profile, credentials and swipes.</p>
</body>
</html>
`
	fmt.Fprint(w, html)
}
