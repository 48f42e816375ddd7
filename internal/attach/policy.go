// Package attach decides which local files may be sent as attachments.
package attach

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/matheus3301/wppchat/internal/config"
	"github.com/matheus3301/wppchat/internal/store"
)

// Category is the media class a file is capped under.
type Category string

const (
	CategoryImage    Category = "image"
	CategoryVideo    Category = "video"
	CategoryAudio    Category = "audio"
	CategoryDocument Category = "document"
)

func (c Category) label() string {
	if c == "" {
		return "File"
	}
	return strings.ToUpper(string(c[:1])) + string(c[1:])
}

// ValidationError is a user-facing reason a file was refused.
type ValidationError struct {
	Category Category
	Reason   string
}

func (e *ValidationError) Error() string { return e.Reason }

// Policy holds per-category size caps and the blocked document types.
type Policy struct {
	limits      map[Category]uint64
	blockedExt  map[string]struct{}
	blockedMIME map[string]struct{}
}

// NewPolicy builds a policy from configured limits. Sizes use humanize
// notation ("5 MB", "16MiB").
func NewPolicy(l config.Limits) (*Policy, error) {
	p := &Policy{
		limits:      make(map[Category]uint64, 4),
		blockedExt:  make(map[string]struct{}),
		blockedMIME: make(map[string]struct{}),
	}
	for _, lim := range []struct {
		cat Category
		raw string
	}{
		{CategoryImage, l.Image},
		{CategoryVideo, l.Video},
		{CategoryAudio, l.Audio},
		{CategoryDocument, l.Document},
	} {
		if lim.raw == "" {
			continue
		}
		n, err := humanize.ParseBytes(lim.raw)
		if err != nil {
			return nil, fmt.Errorf("%s limit %q: %w", lim.cat, lim.raw, err)
		}
		p.limits[lim.cat] = n
	}
	for _, t := range l.BlockedTypes {
		t = strings.ToLower(strings.TrimSpace(t))
		switch {
		case t == "":
		case strings.HasPrefix(t, "."):
			p.blockedExt[t] = struct{}{}
		default:
			p.blockedMIME[t] = struct{}{}
		}
	}
	return p, nil
}

// Limit returns the byte cap for c, or 0 when c is uncapped.
func (p *Policy) Limit(c Category) uint64 { return p.limits[c] }

// Validate accepts or refuses b. A refusal is always a *ValidationError.
func (p *Policy) Validate(b store.LocalBlob) error {
	cat := CategoryOf(b.MIMEType)
	if b.Size <= 0 {
		return &ValidationError{Category: cat, Reason: fmt.Sprintf("%s is empty.", b.Name)}
	}
	if p.blocked(b) {
		return &ValidationError{
			Category: cat,
			Reason:   fmt.Sprintf("%s files can't be sent.", displayType(b)),
		}
	}
	if limit := p.limits[cat]; limit > 0 && uint64(b.Size) > limit {
		return &ValidationError{
			Category: cat,
			Reason: fmt.Sprintf("%s is too large (%s). The limit is %s.",
				cat.label(), humanize.Bytes(uint64(b.Size)), humanize.Bytes(limit)),
		}
	}
	return nil
}

func (p *Policy) blocked(b store.LocalBlob) bool {
	if _, ok := p.blockedExt[extension(b.Name)]; ok {
		return true
	}
	_, ok := p.blockedMIME[baseMIME(b.MIMEType)]
	return ok
}

// CategoryOf maps a MIME type to its size category. Anything that is not
// image, video or audio is a document.
func CategoryOf(mimeType string) Category {
	major, _, _ := strings.Cut(baseMIME(mimeType), "/")
	switch major {
	case "image":
		return CategoryImage
	case "video":
		return CategoryVideo
	case "audio":
		return CategoryAudio
	}
	return CategoryDocument
}

func displayType(b store.LocalBlob) string {
	if ext := extension(b.Name); ext != "" {
		return strings.ToUpper(ext[1:])
	}
	return baseMIME(b.MIMEType)
}
