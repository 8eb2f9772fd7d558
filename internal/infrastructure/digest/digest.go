// Package digest provides the alert-digest source: raw email messages come
// from a MailFetcher collaborator, and candidates are extracted from the
// structured JSON block the digest markup embeds.
package digest

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"OsintGraph/internal/canonical"
	"OsintGraph/internal/domain"
	"OsintGraph/internal/ports"
)

const sourceName = "Google Alert"

// inboxMarkup is the declared shape of the hidden JSON block inside a digest
// email. Anything that does not match simply yields zero candidates.
type inboxMarkup struct {
	Cards []struct {
		Widgets []widget `json:"widgets"`
	} `json:"cards"`
}

type widget struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// AlertProvider turns digest emails into candidate items.
type AlertProvider struct {
	mail   ports.MailFetcher
	logger *slog.Logger
}

var _ ports.SourceProvider = (*AlertProvider)(nil)

// NewAlertProvider wires the mail boundary.
func NewAlertProvider(fetcher ports.MailFetcher, logger *slog.Logger) *AlertProvider {
	return &AlertProvider{mail: fetcher, logger: logger}
}

// Name identifies this provider in stored articles and run reports.
func (p *AlertProvider) Name() string {
	return sourceName
}

// FetchCandidates pulls raw digests from the mail boundary and parses each.
// A digest that cannot be parsed degrades to zero candidates; only the mail
// transport itself can fail the source.
func (p *AlertProvider) FetchCandidates(ctx context.Context) ([]domain.Candidate, error) {
	messages, err := p.mail.FetchDigests(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch digests: %w", err)
	}

	var candidates []domain.Candidate
	for i, raw := range messages {
		parsed, err := ParseDigest(raw)
		if err != nil {
			p.debug("skipping unparseable digest", "index", i, "error", err)
			continue
		}
		candidates = append(candidates, parsed...)
	}

	p.debug("digests parsed", "messages", len(messages), "candidates", len(candidates))
	return candidates, nil
}

// ParseDigest extracts candidates from one raw RFC 822 digest message. The
// email Date header becomes the suggested date for every item. A digest
// without the expected JSON block returns an empty slice, not an error.
func ParseDigest(raw []byte) ([]domain.Candidate, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("read message: %w", err)
	}

	date := time.Now()
	if parsed, err := msg.Header.Date(); err == nil {
		date = parsed
	}

	htmlPayload, err := htmlPart(msg.Header.Get("Content-Type"),
		msg.Header.Get("Content-Transfer-Encoding"), msg.Body)
	if err != nil {
		return nil, fmt.Errorf("locate html part: %w", err)
	}
	if htmlPayload == "" {
		return nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlPayload))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	script := doc.Find(`script[data-scope="inboxmarkup"]`).First()
	if script.Length() == 0 {
		return nil, nil
	}

	var markup inboxMarkup
	if err := json.Unmarshal([]byte(script.Text()), &markup); err != nil {
		// Malformed block degrades to no data rather than crashing the run.
		return nil, nil
	}

	var candidates []domain.Candidate
	for _, card := range markup.Cards {
		for _, w := range card.Widgets {
			if w.Type != "LINK" || w.URL == "" {
				continue
			}
			candidates = append(candidates, domain.Candidate{
				Title:         strings.TrimSpace(w.Title),
				URL:           canonical.Resolve(w.URL),
				Description:   strings.TrimSpace(w.Description),
				SourceName:    sourceName,
				SuggestedDate: date,
			})
		}
	}
	return candidates, nil
}

// htmlPart walks the MIME structure looking for the first text/html part and
// returns it decoded.
func htmlPart(contentType, transferEncoding string, body io.Reader) (string, error) {
	if contentType == "" {
		return "", nil
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf("parse content type: %w", err)
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		reader := multipart.NewReader(body, params["boundary"])
		for {
			part, err := reader.NextPart()
			if err == io.EOF {
				return "", nil
			}
			if err != nil {
				return "", fmt.Errorf("next part: %w", err)
			}

			found, err := htmlPart(part.Header.Get("Content-Type"),
				part.Header.Get("Content-Transfer-Encoding"), part)
			if err != nil {
				return "", err
			}
			if found != "" {
				return found, nil
			}
		}
	}

	if mediaType != "text/html" {
		return "", nil
	}

	decoded := decodeTransfer(transferEncoding, body)
	payload, err := io.ReadAll(decoded)
	if err != nil {
		return "", fmt.Errorf("read html part: %w", err)
	}
	return string(payload), nil
}

func decodeTransfer(encoding string, body io.Reader) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, body)
	case "quoted-printable":
		return quotedprintable.NewReader(body)
	default:
		return body
	}
}

func (p *AlertProvider) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}
