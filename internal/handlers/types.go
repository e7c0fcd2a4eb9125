package handlers

import "time"

// RegisterRequest is the request body for creating an account.
type RegisterRequest struct {
	Body struct {
		Name     string `doc:"Display name"                         example:"Ada Lovelace"     json:"name"`
		Email    string `doc:"Login email, stored lower-cased"      example:"ada@example.com"  json:"email"`
		Password string `doc:"Password, at least 6 characters"      example:"correct-horse"    json:"password"`
		Tier     int    `doc:"Account tier, defaults to 1"          example:"1"                json:"tier,omitempty"`
	}
}

// AccountBody is the public view of an account.
type AccountBody struct {
	ID    string `doc:"Account id"   json:"id"`
	Name  string `doc:"Display name" json:"name"`
	Email string `doc:"Login email"  json:"email"`
	Tier  int    `doc:"Account tier" json:"tier"`
}

// RegisterResponse is the response for a created account.
type RegisterResponse struct {
	Body AccountBody
}

// CreateLinkRequest is the request body for shortening a URL.
type CreateLinkRequest struct {
	Body struct {
		URL         string `doc:"The URL to shorten"               example:"https://example.com/very/long/path" json:"url"`
		CustomToken string `doc:"Optional token to use instead of a generated one" example:"mylink" json:"customToken,omitempty"`
	}
}

// LinkBody describes a short link.
type LinkBody struct {
	ShortToken string    `doc:"The short token"            example:"aB3xYz"                             json:"shortToken"`
	ShortURL   string    `doc:"The full short URL"         example:"http://localhost:8888/aB3xYz"       json:"shortUrl"`
	LongURL    string    `doc:"The original URL"           example:"https://example.com/very/long/path" json:"longUrl"`
	HitCount   int64     `doc:"Number of recorded redirects"                                             json:"hitCount"`
	CreatedAt  time.Time `doc:"Creation time"                                                            json:"createdAt"`
}

// CreateLinkResponse is returned with 201 for a new link and 200 when the
// account had already shortened the URL.
type CreateLinkResponse struct {
	Status   int
	Location string `doc:"The short URL location" header:"Location"`
	Body     LinkBody
}

// ListLinksResponse lists the caller's links.
type ListLinksResponse struct {
	Body struct {
		Links []LinkBody `json:"links"`
	}
}

// RedirectRequest is the request for resolving a short token.
type RedirectRequest struct {
	Token string `doc:"The short token" example:"aB3xYz" path:"token"`
}

// RedirectResponse redirects to the original URL.
type RedirectResponse struct {
	Status   int
	Location string `header:"Location"`
}
