package automation

import (
	"ringback/tools"

	"github.com/rs/zerolog"
)

// Contact is one entry from the external contact book.
type Contact struct {
	DisplayName  string   `json:"displayName"`
	PhoneNumbers []string `json:"phoneNumbers"`
}

// ContactSource is the external contact lookup. Granted reports whether the
// user has allowed access; ListContacts must only be called when it has.
type ContactSource interface {
	Granted() bool
	ListContacts() ([]Contact, error)
}

// StaticContactSource serves a fixed contact list, e.g. one mirrored from the
// device at startup. Also the test double.
type StaticContactSource struct {
	Permission bool
	Contacts   []Contact
}

func (s StaticContactSource) Granted() bool { return s.Permission }

func (s StaticContactSource) ListContacts() ([]Contact, error) { return s.Contacts, nil }

// ContactMatch is the filter's answer for one number.
type ContactMatch struct {
	IsKnown     bool
	DisplayName string
}

// ContactFilter decides whether a destination belongs to a known contact.
// It is advisory: the orchestrator applies policy, and a missing permission
// degrades to "unknown" rather than blocking the send the user opted into.
type ContactFilter struct {
	source      ContactSource
	countryCode string
	log         zerolog.Logger
}

func NewContactFilter(source ContactSource, countryCode string, log zerolog.Logger) *ContactFilter {
	return &ContactFilter{
		source:      source,
		countryCode: countryCode,
		log:         log.With().Str("component", "contacts").Logger(),
	}
}

func (f *ContactFilter) IsKnown(phoneNumber string) ContactMatch {
	if f.source == nil || !f.source.Granted() {
		return ContactMatch{IsKnown: false}
	}

	target, err := tools.NormalizePhone(phoneNumber, f.countryCode)
	if err != nil {
		f.log.Debug().Str("phone", phoneNumber).Err(err).Msg("cannot normalize target number")
		return ContactMatch{IsKnown: false}
	}

	contacts, err := f.source.ListContacts()
	if err != nil {
		f.log.Warn().Err(err).Msg("contact lookup failed, treating as unknown")
		return ContactMatch{IsKnown: false}
	}

	for _, contact := range contacts {
		for _, number := range contact.PhoneNumbers {
			normalized, err := tools.NormalizePhone(number, f.countryCode)
			if err != nil {
				continue
			}
			if normalized == target {
				return ContactMatch{IsKnown: true, DisplayName: contact.DisplayName}
			}
		}
	}
	return ContactMatch{IsKnown: false}
}
