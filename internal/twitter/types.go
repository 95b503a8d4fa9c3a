package twitter

// Raw shapes of the scraping backend's search response. Twitter's schema is
// far more verbose than this; only the fields the pipeline reads are decoded.

type searchResponse struct {
	Statuses []Tweet `json:"statuses"`
}

type Tweet struct {
	FullText         string           `json:"full_text"`
	User             User             `json:"user"`
	ExtendedEntities ExtendedEntities `json:"extended_entities"`
}

type User struct {
	ScreenName string `json:"screen_name"`
}

type ExtendedEntities struct {
	Media []Media `json:"media"`
}

type Media struct {
	Type          string    `json:"type"`
	MediaURLHTTPS string    `json:"media_url_https"`
	VideoInfo     VideoInfo `json:"video_info"`
}

type VideoInfo struct {
	Variants []Variant `json:"variants"`
}

type Variant struct {
	Bitrate     int    `json:"bitrate,omitempty"`
	ContentType string `json:"content_type"`
	URL         string `json:"url"`
}

const (
	MediaTypePhoto       = "photo"
	MediaTypeVideo       = "video"
	MediaTypeAnimatedGIF = "animated_gif"
)

type guestTokenResponse struct {
	GuestToken string `json:"guest_token"`
}
