// Package prompt builds the instruction text sent to the model for each
// enrichment flow. Builders are deterministic: the same lead always produces
// the same prompt, and a lead without a usable name produces "".
package prompt

import (
	"fmt"
	"strings"

	"github.com/digpatho/growth-api/internal/model"
)

const emailDiscoveryTemplate = `Find the professional email address for this person:

%s

Search for their email on:
1. Their organization/university/hospital website (staff directory, faculty page, "about us")
2. Conference speaker lists or published papers that list contact info
3. Regulatory body directories or professional association member lists
4. Their personal or professional website/blog
5. Published research papers (author contact info)

IMPORTANT RULES:
- Only return email addresses you actually find on a web page. Never guess or construct email addresses.
- If you find multiple emails, prefer the professional/institutional one over personal (gmail, hotmail, etc).
- Report exactly where you found each email (the URL).

Respond in this exact JSON format and nothing else:
{
  "found": true or false,
  "email": "the@email.com" or null,
  "alternative_emails": [] or ["other@email.com"],
  "source_url": "https://page-where-found.com" or null,
  "source_description": "Faculty directory of University X" or null,
  "confidence": "high" or "medium" or "low",
  "notes": "any relevant context"
}

If you cannot find an email, set found to false and explain in notes why.`

const descriptionEnrichmentTemplate = `Research the following professional and build a comprehensive profile description. Use web search to find real, verifiable information.

%s

Search for information on:
1. Their professional background, career history, and current role details
2. Their organization — what it does, its relevance in the industry
3. Published research papers, articles, or patents they have authored
4. Conference talks, keynote appearances, or panel participations
5. Professional memberships, board positions, or advisory roles
6. Notable achievements, awards, or recognitions
7. Areas of expertise and specialization
8. Any recent news, interviews, or public statements

IMPORTANT RULES:
- Only include information you actually find on the web. Never invent or assume details.
- Write in Spanish (the CRM is in Spanish).
- Be factual and professional. No speculation or flattery.
- If you find very little, say so honestly — a short but accurate description is better than a fabricated long one.
- Structure the description with clear sections when there is enough information.

Respond in this exact JSON format and nothing else:
{
  "description": "The full enriched description text (multi-paragraph, in Spanish). Use line breaks between sections.",
  "sources": ["https://url1.com", "https://url2.com"],
  "confidence": "high" or "medium" or "low",
  "sections_found": ["background", "publications", "talks", "awards", "expertise"]
}

If you cannot find meaningful information beyond what was already known, return:
{
  "description": null,
  "sources": [],
  "confidence": "low",
  "notes": "Explanation of why enrichment was not possible"
}`

// EmailDiscovery builds the web-search email discovery prompt for a lead.
// Returns "" when the lead has no usable name; the orchestrator treats that
// as an immediate not-found without any network call.
func EmailDiscovery(lead model.Lead) string {
	context := leadContext(lead, false)
	if context == "" {
		return ""
	}
	return fmt.Sprintf(emailDiscoveryTemplate, context)
}

// DescriptionEnrichment builds the profile enrichment prompt for a lead.
// Returns "" when the lead has no usable name.
func DescriptionEnrichment(lead model.Lead) string {
	context := leadContext(lead, true)
	if context == "" {
		return ""
	}
	return fmt.Sprintf(descriptionEnrichmentTemplate, context)
}

// leadContext renders every known lead attribute as one line each. The full
// name is mandatory; everything else is included only when present.
func leadContext(lead model.Lead, withDescription bool) string {
	name := lead.Name()
	if name == "" {
		return ""
	}

	lines := []string{"Full name: " + name}
	if lead.Company != "" {
		lines = append(lines, "Organization/Company: "+lead.Company)
	}
	if lead.JobTitle != "" {
		lines = append(lines, "Job title: "+lead.JobTitle)
	}
	if lead.Geo != "" {
		lines = append(lines, "Geography: "+lead.Geo)
	}
	if lead.LinkedInURL != "" {
		lines = append(lines, "LinkedIn: "+lead.LinkedInURL)
	}
	if withDescription {
		if desc := lead.Description(); desc != "" {
			lines = append(lines, "Current snippet: "+desc)
		}
	}
	return strings.Join(lines, "\n")
}
