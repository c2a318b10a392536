package enums

// Tier is the persisted access class of a memorial. Expiry is derived from the
// expiry date and is never stored.
type Tier string

const (
	TierTemporary Tier = "temporary"
	TierActive    Tier = "active"
	TierPermanent Tier = "permanent"
)

var tiers = []Tier{TierTemporary, TierActive, TierPermanent}

func (v Tier) String() string { return string(v) }
func (v Tier) IsValid() bool  { _, err := ParseTier(string(v)); return err == nil }

func ParseTier(raw string) (Tier, error) { return parse(tiers, "tier", raw) }

// MediaKind classifies an uploaded asset.
type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
	MediaKindAudio MediaKind = "audio"
)

var mediaKinds = []MediaKind{MediaKindImage, MediaKindVideo, MediaKindAudio}

func (v MediaKind) String() string { return string(v) }
func (v MediaKind) IsValid() bool  { _, err := ParseMediaKind(string(v)); return err == nil }

func ParseMediaKind(raw string) (MediaKind, error) { return parse(mediaKinds, "media kind", raw) }
