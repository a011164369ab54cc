package email

import "strings"

// Media types used by the body tree.
const (
	TypeText        = "text/plain"
	TypeHTML        = "text/html"
	TypeAlternative = "multipart/alternative"
	TypeRelated     = "multipart/related"
)

// Part is a node of a message body tree. Leaves carry Content; multipart nodes
// carry Parts. Inline assets are leaves with a ContentID.
type Part struct {
	ContentType string
	ContentID   string
	Content     []byte
	Parts       []*Part
}

// NewText returns a plain-text leaf.
func NewText(body string) *Part {
	return &Part{ContentType: TypeText, Content: []byte(body)}
}

// NewHTML returns an HTML leaf.
func NewHTML(body string) *Part {
	return &Part{ContentType: TypeHTML, Content: []byte(body)}
}

// NewInline returns an inline asset leaf addressed by its content id.
func NewInline(rc RelatedContent) *Part {
	return &Part{ContentType: rc.MimeType, ContentID: rc.ContentID, Content: rc.Body}
}

// NewAlternative returns a multipart/alternative node. Parts are ordered from
// least to most preferred rendering.
func NewAlternative(parts ...*Part) *Part {
	return &Part{ContentType: TypeAlternative, Parts: parts}
}

// NewRelated returns a multipart/related node with the HTML root first,
// followed by each inline asset in the given order.
func NewRelated(html *Part, inline ...RelatedContent) *Part {
	parts := make([]*Part, 0, len(inline)+1)
	parts = append(parts, html)
	for _, rc := range inline {
		parts = append(parts, NewInline(rc))
	}
	return &Part{ContentType: TypeRelated, Parts: parts}
}

// IsMultipart reports whether p is a container node.
func (p *Part) IsMultipart() bool {
	return strings.HasPrefix(p.ContentType, "multipart/")
}

// Inline finds the inline asset with the given content id anywhere below p.
func (p *Part) Inline(contentID string) (*Part, bool) {
	if contentID == "" {
		return nil, false
	}
	found := p.find(func(n *Part) bool { return n.ContentID == contentID })
	return found, found != nil
}

// find returns the first node in depth-first order matching fn.
func (p *Part) find(fn func(*Part) bool) *Part {
	if p == nil {
		return nil
	}
	if fn(p) {
		return p
	}
	for _, child := range p.Parts {
		if found := child.find(fn); found != nil {
			return found
		}
	}
	return nil
}

func (p *Part) walk(fn func(*Part)) {
	if p == nil {
		return
	}
	fn(p)
	for _, child := range p.Parts {
		child.walk(fn)
	}
}
