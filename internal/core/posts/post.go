package posts

import (
	"encoding/json"
	"path"
	"strings"
	"time"
)

// Post represents a memory as held in the local view.
// ID is empty for an entry the Record Store has not acknowledged yet.
type Post struct {
	CreatedAt  time.Time  `json:"createdAt"`
	Attachment Attachment `json:"attachmentRef,omitzero"`
	ID         string     `json:"id,omitempty"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	Like       int        `json:"like"`
}

// Draft is the user's input for a new post.
type Draft struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// AttachmentFile is a user-chosen file to attach to a new post.
type AttachmentFile struct {
	Name string
	Data []byte
}

// PostFields is what CreatePost sends to the Record Store.
// AttachmentKey is empty when the post has no attachment.
type PostFields struct {
	Title         string `json:"title"`
	Content       string `json:"content"`
	AttachmentKey string `json:"attachmentRef,omitempty"`
	Like          int    `json:"like"`
}

// PostPatch is a partial update. Nil fields are left untouched.
type PostPatch struct {
	Like *int `json:"like,omitempty"`
}

// AttachmentState tells which lifecycle stage an Attachment is in.
type AttachmentState uint8

const (
	// AttachmentNone means the post has no attachment.
	AttachmentNone AttachmentState = iota
	// AttachmentPending is a locally chosen file name that has not been uploaded.
	AttachmentPending
	// AttachmentStored is the key the binary was stored under.
	AttachmentStored
	// AttachmentResolved carries both the key and a fetchable URL.
	AttachmentResolved
)

func (s AttachmentState) String() string {
	switch s {
	case AttachmentPending:
		return "pending"
	case AttachmentStored:
		return "stored"
	case AttachmentResolved:
		return "resolved"
	default:
		return "none"
	}
}

// Attachment is a tagged attachment reference: Pending(name), Stored(key) or
// Resolved(key, url). The zero value is "no attachment".
type Attachment struct {
	key   string
	url   string
	state AttachmentState
}

// PendingAttachment references a file chosen locally but not uploaded yet.
func PendingAttachment(name string) Attachment {
	if name == "" {
		return Attachment{}
	}
	return Attachment{key: name, state: AttachmentPending}
}

// StoredAttachment references a binary stored under key.
func StoredAttachment(key string) Attachment {
	if key == "" {
		return Attachment{}
	}
	return Attachment{key: key, state: AttachmentStored}
}

// ResolvedAttachment references the binary under key, fetchable at url.
func ResolvedAttachment(key, url string) Attachment {
	return Attachment{key: key, url: url, state: AttachmentResolved}
}

// State returns the lifecycle stage.
func (a Attachment) State() AttachmentState { return a.state }

// Key returns the blob key (or the pending file name). Empty when none.
func (a Attachment) Key() string { return a.key }

// URL returns the resolved URL, or "" before resolution.
func (a Attachment) URL() string { return a.url }

// IsZero reports whether there is no attachment.
func (a Attachment) IsZero() bool { return a.state == AttachmentNone }

// String is the single externally visible value: the URL once resolved,
// the raw key before that.
func (a Attachment) String() string {
	if a.state == AttachmentResolved {
		return a.url
	}
	return a.key
}

// Resolve returns the attachment moved to the Resolved stage.
func (a Attachment) Resolve(url string) Attachment {
	return ResolvedAttachment(a.key, url)
}

// MarshalJSON encodes the attachment as its external string form.
func (a Attachment) MarshalJSON() ([]byte, error) {
	if a.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(a.String())
}

// UnmarshalJSON decodes a raw key. A resolved URL cannot be told apart from a
// key on the wire, so decoded values are always Stored.
func (a *Attachment) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == nil {
		*a = Attachment{}
		return nil
	}
	*a = StoredAttachment(*s)
	return nil
}

// AttachmentKey derives the blob key for a chosen file: its base name with
// any directory part removed.
func AttachmentKey(fileName string) string {
	name := strings.ReplaceAll(fileName, "\\", "/")
	name = strings.TrimSpace(path.Base(name))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}
