package signals

// Signal names used as method prefixes by the match engine.
const (
	NameAltText  = "alt"
	NameFilename = "filename"
	NameCaption  = "caption"
	NameHeading  = "heading"
	NameLinkText = "link"
)

// Signals holds the context recovered for one directive occurrence. Every
// field is optional; the zero value means no context was found.
type Signals struct {
	NearbyPath         string `json:"nearby_path,omitempty"`
	NearbySlug         string `json:"nearby_slug,omitempty"`
	ImageAltText       string `json:"image_alt_text,omitempty"`
	ImageFilenameToken string `json:"image_filename_token,omitempty"`
	CaptionText        string `json:"caption_text,omitempty"`
	HeadingText        string `json:"heading_text,omitempty"`
	LinkText           string `json:"link_text,omitempty"`
}

// Text is one named text-bearing signal.
type Text struct {
	Name  string
	Value string
}

// Texts returns the non-empty text-bearing signals (everything except the
// nearby slug) in a fixed order.
func (s Signals) Texts() []Text {
	all := []Text{
		{NameCaption, s.CaptionText},
		{NameAltText, s.ImageAltText},
		{NameLinkText, s.LinkText},
		{NameHeading, s.HeadingText},
		{NameFilename, s.ImageFilenameToken},
	}
	out := all[:0]
	for _, text := range all {
		if text.Value != "" {
			out = append(out, text)
		}
	}
	return out
}

// Count returns how many signals are present.
func (s Signals) Count() int {
	n := len(s.Texts())
	if s.NearbySlug != "" {
		n++
	}
	return n
}

// Empty reports whether no signal was recovered.
func (s Signals) Empty() bool { return s.Count() == 0 }
