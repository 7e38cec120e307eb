package automation

import (
	"strings"

	"ringback/models"
)

// linkPendingText is substituted when no conversation URL could be resolved
// yet. Better an honest placeholder than a broken link in someone's inbox.
const linkPendingText = "(link is being generated, please try again shortly)"

// Compose renders the outgoing text from the user's template and the resolved
// chat link. Templates are free-form: a missing placeholder appends the link
// instead of failing.
func Compose(template, link string) string {
	template = strings.TrimSpace(template)
	if template == "" {
		template = models.DefaultMessageTemplate
	}
	if link == "" {
		link = linkPendingText
	}

	if strings.Contains(template, models.LinkPlaceholder) {
		return strings.ReplaceAll(template, models.LinkPlaceholder, link)
	}
	return template + "\n\n" + link
}
