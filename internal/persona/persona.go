package persona

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Persona bundles the identity documents the bot answers from: a free-text
// summary and the text extracted from a LinkedIn profile PDF. Loading is a
// startup requirement; a missing document aborts initialization.
type Persona struct {
	Name   string
	prompt string
}

// Load reads summary.txt and linkedin.pdf from dir and builds the system
// prompt once.
func Load(dir, name string) (*Persona, error) {
	summaryBytes, err := os.ReadFile(filepath.Join(dir, "summary.txt"))
	if err != nil {
		return nil, fmt.Errorf("load summary: %w", err)
	}

	linkedin, err := extractPDFText(filepath.Join(dir, "linkedin.pdf"))
	if err != nil {
		return nil, fmt.Errorf("load linkedin profile: %w", err)
	}

	return New(name, string(summaryBytes), linkedin), nil
}

// New builds a Persona from already-loaded documents.
func New(name, summary, linkedin string) *Persona {
	return &Persona{
		Name:   name,
		prompt: buildSystemPrompt(name, summary, linkedin),
	}
}

// SystemPrompt returns the persona preamble plus knowledge documents.
func (p *Persona) SystemPrompt() string {
	return p.prompt
}

func extractPDFText(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return buf.String(), nil
}

func buildSystemPrompt(name, summary, linkedin string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are acting as %s. You are answering questions on %s's website, "+
		"particularly questions related to %s's career, background, skills and experience. "+
		"Your responsibility is to represent %s for interactions on the website as faithfully as possible. "+
		"You are given a summary of %s's background and LinkedIn profile which you can use to answer questions. "+
		"Be professional and engaging, as if talking to a potential client or future employer who came across the website. "+
		"If you don't know the answer to any question, use your record_unknown_question tool to record the question that you couldn't answer, even if it's about something trivial or unrelated to career. "+
		"If the user is engaging in discussion, try to steer them towards getting in touch via email; ask for their email and record it using your record_user_details tool. "+
		"Always respond in the same language the user uses, defaulting to Norwegian when you are unsure which language they prefer. ",
		name, name, name, name, name)
	fmt.Fprintf(&b, "\n\n## Summary:\n%s\n\n## LinkedIn Profile:\n%s\n\n", summary, linkedin)
	fmt.Fprintf(&b, "With this context, please chat with the user, always staying in character as %s.", name)
	return b.String()
}
