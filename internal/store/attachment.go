package store

// AttachmentKind tells which form an Attachment is in.
type AttachmentKind int

const (
	// AttachmentPending is a local file that has not been uploaded yet.
	AttachmentPending AttachmentKind = iota + 1
	// AttachmentUploaded is a file the server holds at a durable URL.
	AttachmentUploaded
)

func (k AttachmentKind) String() string {
	switch k {
	case AttachmentPending:
		return "pending"
	case AttachmentUploaded:
		return "uploaded"
	}
	return "unknown"
}

// LocalBlob describes a file on disk selected for sending.
type LocalBlob struct {
	Path     string
	Name     string
	Size     int64
	MIMEType string
}

// Attachment is either Pending (a LocalBlob) or Uploaded (a URL plus filename).
// Construct it with Pending or Uploaded; the zero value is not valid.
type Attachment struct {
	kind     AttachmentKind
	blob     LocalBlob
	url      string
	filename string
}

// Pending wraps a local blob awaiting upload.
func Pending(b LocalBlob) *Attachment {
	return &Attachment{kind: AttachmentPending, blob: b, filename: b.Name}
}

// Uploaded wraps a remote file.
func Uploaded(url, filename string) *Attachment {
	return &Attachment{kind: AttachmentUploaded, url: url, filename: filename}
}

// Kind returns the variant.
func (a *Attachment) Kind() AttachmentKind { return a.kind }

// Blob returns the local file for a pending attachment.
func (a *Attachment) Blob() (LocalBlob, bool) {
	if a.kind != AttachmentPending {
		return LocalBlob{}, false
	}
	return a.blob, true
}

// Remote returns the URL and declared filename of an uploaded attachment.
func (a *Attachment) Remote() (url, filename string, ok bool) {
	if a.kind != AttachmentUploaded {
		return "", "", false
	}
	return a.url, a.filename, true
}

// Filename is the display name in either form.
func (a *Attachment) Filename() string { return a.filename }
