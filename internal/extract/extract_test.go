package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digpatho/growth-api/internal/model"
	"github.com/digpatho/growth-api/pkg/anthropic"
)

func textResponse(blocks ...string) *anthropic.MessageResponse {
	resp := &anthropic.MessageResponse{}
	for _, b := range blocks {
		resp.Content = append(resp.Content, anthropic.ContentBlock{Type: "text", Text: b})
	}
	return resp
}

func TestEmailStructuredJSON(t *testing.T) {
	resp := textResponse(`Here is what I found:
{
  "found": true,
  "email": " maria.lopez@hospital.org ",
  "alternative_emails": ["m.lopez@uni.edu"],
  "source_url": "https://hospital.org/staff",
  "source_description": "Staff directory",
  "confidence": "high",
  "notes": "Listed as head of pathology"
}`)

	res := Email(resp)
	require.Equal(t, StatusFound, res.Status)
	assert.Equal(t, "maria.lopez@hospital.org", res.Email)
	assert.Equal(t, []string{"m.lopez@uni.edu"}, res.AlternativeEmails)
	assert.Equal(t, "https://hospital.org/staff", res.SourceURL)
	assert.Equal(t, model.ConfidenceHigh, res.Confidence)
	assert.False(t, res.FromFallback)
}

func TestEmailJSONWinsOverOtherEmails(t *testing.T) {
	// The declared value wins even when other addresses appear in the text.
	resp := textResponse(`I saw decoy@other.com while searching.
{"found": true, "email": "real@hospital.org", "confidence": "medium"}`)

	res := Email(resp)
	require.Equal(t, StatusFound, res.Status)
	assert.Equal(t, "real@hospital.org", res.Email)
}

func TestEmailNotFound(t *testing.T) {
	resp := textResponse(`{"found": false, "email": null, "notes": "No public email listed"}`)

	res := Email(resp)
	assert.Equal(t, StatusNotFound, res.Status)
	assert.Equal(t, "No public email listed", res.Notes)
	assert.Empty(t, res.Email)
}

func TestEmailFoundTrueButEmpty(t *testing.T) {
	// found:true with a blank email is a model mistake, treated as not found.
	resp := textResponse(`{"found": true, "email": "  "}`)
	assert.Equal(t, StatusNotFound, Email(resp).Status)
}

func TestEmailRegexFallback(t *testing.T) {
	resp := textResponse("The address appears to be jdoe@clinic.net according to the site, also jdoe2@clinic.net.")

	res := Email(resp)
	require.Equal(t, StatusFound, res.Status)
	assert.Equal(t, "jdoe@clinic.net", res.Email)
	assert.Equal(t, []string{"jdoe2@clinic.net"}, res.AlternativeEmails)
	assert.Equal(t, model.ConfidenceLow, res.Confidence)
	assert.True(t, res.FromFallback)
}

func TestEmailFallbackSkipsPlaceholders(t *testing.T) {
	resp := textResponse("Something like jane@example.com or jane@email.com, but actually jane@lab.io.")

	res := Email(resp)
	require.Equal(t, StatusFound, res.Status)
	assert.Equal(t, "jane@lab.io", res.Email)
	assert.Empty(t, res.AlternativeEmails)
}

func TestEmailPlaceholdersOnly(t *testing.T) {
	resp := textResponse("An address would look like jane@example.com.")
	assert.Equal(t, StatusParseFailed, Email(resp).Status)
}

func TestEmailNoTextBlocks(t *testing.T) {
	resp := &anthropic.MessageResponse{Content: []anthropic.ContentBlock{{Type: "server_tool_use"}}}
	assert.Equal(t, StatusParseFailed, Email(resp).Status)
}

func TestEmailUsesLastTextBlock(t *testing.T) {
	resp := textResponse(
		"Let me search for that.",
		`{"found": true, "email": "final@lab.io", "confidence": "medium"}`,
	)
	res := Email(resp)
	require.Equal(t, StatusFound, res.Status)
	assert.Equal(t, "final@lab.io", res.Email)
}

func TestEmailCarriesSearchCount(t *testing.T) {
	resp := textResponse(`{"found": false}`)
	resp.Usage.WebSearchRequests = 4
	assert.Equal(t, int64(4), Email(resp).SearchCount)
}

func TestDescriptionStructuredJSON(t *testing.T) {
	resp := textResponse(`{
  "description": "Directora de anatomía patológica.\n\nPublicaciones recientes sobre biopsias digitales.",
  "sources": ["https://uni.edu/profile"],
  "confidence": "high",
  "sections_found": ["background", "publications"]
}`)

	res := Description(resp)
	require.Equal(t, StatusFound, res.Status)
	assert.Contains(t, res.Description, "anatomía patológica")
	assert.Equal(t, []string{"https://uni.edu/profile"}, res.Sources)
	assert.Equal(t, model.ConfidenceHigh, res.Confidence)
	assert.Equal(t, []string{"background", "publications"}, res.SectionsFound)
}

func TestDescriptionNullMeansNotFound(t *testing.T) {
	resp := textResponse(`{"description": null, "sources": [], "confidence": "low", "notes": "Perfil sin presencia pública"}`)

	res := Description(resp)
	assert.Equal(t, StatusNotFound, res.Status)
	assert.Equal(t, "Perfil sin presencia pública", res.Notes)
}

func TestDescriptionDefaultConfidence(t *testing.T) {
	resp := textResponse(`{"description": "Texto", "sources": []}`)
	assert.Equal(t, model.ConfidenceMedium, Description(resp).Confidence)
}

func TestDescriptionRawTextFallback(t *testing.T) {
	long := "Reconocida especialista en patología digital con más de quince años de experiencia en hospitales universitarios de Madrid y Barcelona."
	require.Greater(t, len(long), minFallbackDescription)

	res := Description(textResponse(long))
	require.Equal(t, StatusFound, res.Status)
	assert.Equal(t, long, res.Description)
	assert.Equal(t, model.ConfidenceLow, res.Confidence)
	assert.True(t, res.FromFallback)
}

func TestDescriptionShortTextRejected(t *testing.T) {
	res := Description(textResponse("No encontré nada."))
	assert.Equal(t, StatusParseFailed, res.Status)
}

func TestStripCites(t *testing.T) {
	in := `Según <cite index="1">el sitio oficial</cite>, dirige el laboratorio.`
	assert.Equal(t, "Según el sitio oficial, dirige el laboratorio.", StripCites(in))

	// Case-insensitive, attributes optional.
	assert.Equal(t, "texto", StripCites("<CITE>texto</CITE>"))
	assert.Equal(t, "", StripCites(""))
}

func TestDescriptionStripsCitesInJSON(t *testing.T) {
	resp := textResponse(`{"description": "Dirige <cite index=\"2\">el instituto</cite> desde 2019. Su carrera abarca más de dos décadas de investigación traslacional en oncología molecular aplicada.", "sources": []}`)

	res := Description(resp)
	require.Equal(t, StatusFound, res.Status)
	assert.NotContains(t, res.Description, "<cite")
	assert.NotContains(t, res.Description, "</cite>")
}
