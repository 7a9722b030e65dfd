package core

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const sniffLen = 3072

type (
	// Blob is a stored binary object.
	Blob struct {
		Key         string
		URL         string
		Size        int64
		ContentType string
	}

	// BlobStore is any object storage able to keep uploaded files.
	BlobStore interface {
		Put(ctx context.Context, key, contentType string, r io.Reader) (Blob, error)
		Delete(ctx context.Context, key string) error
	}

	// Upload is a file received from a client.
	Upload struct {
		Filename    string
		ContentType string // declared by the client until checked
		Size        int64
		Content     io.Reader
	}

	// UploadPolicy restricts the size and content types of uploads.
	UploadPolicy struct {
		MaxSize      int64
		AllowedTypes []string
	}
)

func (p UploadPolicy) allows(ct string) bool {
	for _, t := range p.AllowedTypes {
		if t == ct {
			return true
		}
	}
	return false
}

// Check validates up against the policy before anything gets stored.
// The content type is sniffed from the first bytes of the content; the declared type is
// only trusted when sniffing can not tell more than "binary" or "zip".
// On success up.ContentType holds the effective type and up.Content still yields the whole file.
func (p UploadPolicy) Check(up *Upload) error {
	if up.Content == nil {
		return NewError(KindInvalidArgument, "no file uploaded")
	}
	if p.MaxSize > 0 && up.Size > p.MaxSize {
		return NewError(KindInvalidArgument, fmt.Sprintf("file %q is too large (max %d MB)", up.Filename, p.MaxSize>>20))
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(up.Content, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return err
	}
	head = head[:n]
	up.Content = io.MultiReader(bytes.NewReader(head), up.Content)

	declared := baseType(up.ContentType)
	detected := mimetype.Detect(head)
	for mt := detected; mt != nil; mt = mt.Parent() {
		if ct := baseType(mt.String()); p.allows(ct) {
			up.ContentType = ct
			return nil
		}
	}
	if ct := baseType(detected.String()); (ct == "application/octet-stream" || ct == "application/zip") && p.allows(declared) {
		up.ContentType = declared
		return nil
	}
	return NewError(KindInvalidArgument, fmt.Sprintf("file type of %q is not allowed", up.Filename))
}

func baseType(ct string) string {
	return strings.ToLower(strings.TrimSpace(strings.SplitN(ct, ";", 2)[0]))
}

// ObjectKey returns a unique storage key for filename under prefix.
func ObjectKey(prefix, filename string) string {
	name := strings.ReplaceAll(path.Base(filename), " ", "_")
	if name == "." || name == "/" {
		name = "file"
	}
	return prefix + "/" + uuid.New().String() + "-" + name
}
