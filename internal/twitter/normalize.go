package twitter

// NabResponse is the compact shape served to clients: the author's handle,
// the tweet text, and two index-aligned lists of media file types and
// highest-quality URLs.
type NabResponse struct {
	Username string   `json:"username"`
	Text     string   `json:"text"`
	Types    []string `json:"types"`
	Media    []string `json:"media"`
}

// Normalize flattens a raw tweet into a NabResponse. Pure: no I/O, and media
// entities keep their input order. Photos resolve to the original-quality
// URL; videos and GIFs resolve to their highest-bitrate variant.
func Normalize(tweet *Tweet) (*NabResponse, error) {
	entities := tweet.ExtendedEntities.Media
	types := make([]string, 0, len(entities))
	media := make([]string, 0, len(entities))

	for _, m := range entities {
		switch m.Type {
		case MediaTypePhoto:
			types = append(types, "jpg")
			media = append(media, m.MediaURLHTTPS+":orig")
		case MediaTypeVideo, MediaTypeAnimatedGIF:
			variant, err := bestVariant(m.VideoInfo.Variants)
			if err != nil {
				return nil, err
			}
			types = append(types, "mp4")
			media = append(media, variant.URL)
		default:
			// Unrecognized kinds keep a slot in the type list only;
			// there is no URL we can resolve for them.
			types = append(types, "unknown")
		}
	}

	return &NabResponse{
		Username: tweet.User.ScreenName,
		Text:     tweet.FullText,
		Types:    types,
		Media:    media,
	}, nil
}

// bestVariant picks the maximum-bitrate variant. A missing bitrate compares
// as zero; the first maximal variant wins, so the choice is deterministic.
func bestVariant(variants []Variant) (*Variant, error) {
	if len(variants) == 0 {
		return nil, ErrMissingVariants
	}

	best := &variants[0]
	for i := 1; i < len(variants); i++ {
		if variants[i].Bitrate > best.Bitrate {
			best = &variants[i]
		}
	}
	return best, nil
}
