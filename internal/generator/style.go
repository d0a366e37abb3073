package generator

import (
	"github.com/foxzi/recruitflow/internal/campaign"
	"github.com/foxzi/recruitflow/internal/template"
)

// Style is the fixed greeting and sign-off of a tone
type Style struct {
	Name       campaign.Tone
	Salutation string
	Closing    string
}

var styles = map[campaign.Tone]Style{
	campaign.ToneProfessional: {
		Name:       campaign.ToneProfessional,
		Salutation: "Dear " + template.TokenFirstName + ",",
		Closing:    "Sincerely, " + template.TokenRecruiterName,
	},
	campaign.ToneFriendly: {
		Name:       campaign.ToneFriendly,
		Salutation: "Hey " + template.TokenFirstName + "!",
		Closing:    "Best, " + template.TokenRecruiterName,
	},
	campaign.ToneCasual: {
		Name:       campaign.ToneCasual,
		Salutation: "Hi " + template.TokenFirstName + ",",
		Closing:    "Cheers, " + template.TokenRecruiterName,
	},
	campaign.ToneFormal: {
		Name:       campaign.ToneFormal,
		Salutation: "Good day " + template.TokenFirstName + ",",
		Closing:    "Respectfully, " + template.TokenRecruiterName,
	},
}

// StyleFor returns the style of tone, professional when unknown
func StyleFor(tone campaign.Tone) Style {
	if s, ok := styles[tone]; ok {
		return s
	}
	return styles[campaign.ToneProfessional]
}

// Band is the readable word range requested for an email length
type Band struct {
	Name campaign.EmailLength
	Min  int
	Max  int
}

// BandFor returns the word band of length. Max is 0 when open-ended.
func BandFor(length campaign.EmailLength) Band {
	if !length.Valid() {
		length = campaign.DefaultLength
	}
	min, max := length.WordBand()
	return Band{Name: length, Min: min, Max: max}
}

// Contains reports whether n words fall inside the band
func (b Band) Contains(n int) bool {
	if n < b.Min {
		return false
	}
	return b.Max == 0 || n <= b.Max
}
