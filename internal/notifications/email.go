package notifications

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	retentionWeeksKey = "%d weeks"
	retentionDaysKey  = "%d days"
)

func init() {
	_ = message.Set(language.English, retentionWeeksKey,
		plural.Selectf(1, "%d", "=1", "1 week", plural.Other, "%d weeks"))
	_ = message.Set(language.English, retentionDaysKey,
		plural.Selectf(1, "%d", "=1", "1 day", plural.Other, "%d days"))
}

var namedAddress = regexp.MustCompile(`^(.*)<([^>]*)>$`)

// Recipient is one parsed notify entry.
type Recipient struct {
	Name    string
	Address string
}

// ParseRecipient splits "Display Name <address>" into its parts. Entries
// without a non-blank name and address are treated as a bare address.
func ParseRecipient(raw string) Recipient {
	if m := namedAddress.FindStringSubmatch(raw); m != nil {
		name := strings.TrimSpace(m[1])
		addr := strings.TrimSpace(m[2])
		if name != "" && addr != "" {
			return Recipient{Name: name, Address: addr}
		}
	}
	return Recipient{Address: strings.TrimSpace(raw)}
}

// Salutation returns the greeting line for the recipient, or "" when unnamed.
func (r Recipient) Salutation() string {
	if r.Name == "" {
		return ""
	}
	return fmt.Sprintf("Dear %s,\n\n", r.Name)
}

// DownloadReady describes a download-ready email.
type DownloadReady struct {
	ServiceName   string
	FromAddress   string
	FromName      string
	Recipient     Recipient
	URL           string
	RetentionDays int
	Language      language.Tag
	Date          time.Time
}

// Subject returns the email subject line.
func (d DownloadReady) Subject() string {
	return fmt.Sprintf("Your %s Batch Download Link", d.ServiceName)
}

// Body returns the plain text email body.
func (d DownloadReady) Body() string {
	return fmt.Sprintf("%sThank you for using %s to easily create and manage your identifiers. "+
		"The batch download you requested is available at:\n\n%s\n\n"+
		"The download will be deleted in %s.\n"+
		"This is an automated email.  Please do not reply.\n",
		d.Recipient.Salutation(), d.ServiceName, d.URL, RetentionPhrase(d.Language, d.RetentionDays))
}

// RetentionPhrase renders a retention period as whole weeks when possible,
// otherwise days.
func RetentionPhrase(tag language.Tag, days int) string {
	p := message.NewPrinter(tag)
	if days > 0 && days%7 == 0 {
		return p.Sprintf(retentionWeeksKey, days/7)
	}
	return p.Sprintf(retentionDaysKey, days)
}

// ComposeDownloadReady renders the full RFC 5322 message.
func ComposeDownloadReady(d DownloadReady) ([]byte, error) {
	var h mail.Header
	date := d.Date
	if date.IsZero() {
		date = time.Now()
	}
	h.SetDate(date)
	h.SetAddressList("From", []*mail.Address{{Name: d.FromName, Address: d.FromAddress}})
	h.SetAddressList("To", []*mail.Address{{Address: d.Recipient.Address}})
	h.SetSubject(d.Subject())
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("generate message id: %w", err)
	}
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	h.Set("Content-Transfer-Encoding", "quoted-printable")

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("create message writer: %w", err)
	}
	if _, err := io.WriteString(w, d.Body()); err != nil {
		return nil, fmt.Errorf("write message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close message: %w", err)
	}
	return buf.Bytes(), nil
}
