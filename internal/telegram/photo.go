package telegram

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"path"
	"strings"

	"eventsbot/internal/routing"
)

// ObjectStore reads image bytes by object path.
type ObjectStore interface {
	Open(ctx context.Context, objectPath string) (io.ReadCloser, error)
}

// storagePathMarker precedes the URL-encoded object path in an image
// reference (a storage download URL).
const storagePathMarker = "/o/"

const defaultPhotoName = "image.jpg"

// Photo is one multipart sendPhoto call. Photos are always sent without a
// caption: the rendered text follows as a reply so long descriptions keep
// consistent formatting.
type Photo struct {
	ChatID   string
	Thread   routing.ThreadID
	Data     []byte
	Filename string
}

// SendPhotoBytes uploads p as multipart form data. Binary payload must not
// go through the JSON variant.
func (c *Client) SendPhotoBytes(ctx context.Context, p Photo) (int, error) {
	name := p.Filename
	if name == "" {
		name = defaultPhotoName
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("chat_id", p.ChatID); err != nil {
		return 0, fmt.Errorf("telegram: sendPhoto form: %w", err)
	}
	if v := p.Thread.Value(); v != nil {
		if err := w.WriteField("message_thread_id", fmt.Sprint(v)); err != nil {
			return 0, fmt.Errorf("telegram: sendPhoto form: %w", err)
		}
	}
	fw, err := w.CreateFormFile("photo", name)
	if err != nil {
		return 0, fmt.Errorf("telegram: sendPhoto form: %w", err)
	}
	if _, err := fw.Write(p.Data); err != nil {
		return 0, fmt.Errorf("telegram: sendPhoto form: %w", err)
	}
	if err := w.Close(); err != nil {
		return 0, fmt.Errorf("telegram: sendPhoto form: %w", err)
	}

	return c.do(ctx, "sendPhoto", w.FormDataContentType(), bytes.NewReader(buf.Bytes()))
}

// SendPhotoFromStore resolves ref to an object path, fetches the bytes and
// uploads them to dest. A ref that cannot be parsed yields ErrBadImageRef.
func (c *Client) SendPhotoFromStore(ctx context.Context, store ObjectStore, dest routing.Destination, ref string) (int, error) {
	if store == nil {
		return 0, fmt.Errorf("telegram: image %q: no object store configured", ref)
	}
	objectPath, err := ParseImageRef(ref)
	if err != nil {
		return 0, err
	}

	rc, err := store.Open(ctx, objectPath)
	if err != nil {
		return 0, fmt.Errorf("telegram: fetch image %q: %w", objectPath, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return 0, fmt.Errorf("telegram: read image %q: %w", objectPath, err)
	}

	return c.SendPhotoBytes(ctx, Photo{
		ChatID:   dest.ChatID,
		Thread:   dest.Thread,
		Data:     data,
		Filename: photoFilename(objectPath),
	})
}

// ParseImageRef extracts the decoded object path from a storage download URL
// (the URL-encoded segment following "/o/", query stripped).
func ParseImageRef(ref string) (string, error) {
	i := strings.Index(ref, storagePathMarker)
	if i < 0 {
		return "", fmt.Errorf("%w: %q", ErrBadImageRef, ref)
	}
	seg := ref[i+len(storagePathMarker):]
	if j := strings.IndexByte(seg, '?'); j >= 0 {
		seg = seg[:j]
	}
	decoded, err := url.PathUnescape(seg)
	if err != nil || decoded == "" {
		return "", fmt.Errorf("%w: %q", ErrBadImageRef, ref)
	}
	return decoded, nil
}

func photoFilename(objectPath string) string {
	name := path.Base(objectPath)
	if name == "." || name == "/" || name == "" {
		return defaultPhotoName
	}
	return name
}
