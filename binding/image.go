package binding

import (
	"io"
	"mime"
	"mime/multipart"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/goliatone/go-authkit/metrics"
	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeNotAnImage      = "NOT_AN_IMAGE"
	TextCodeImageUnreadable = "IMAGE_UNREADABLE"
	TextCodeImageMismatch   = "IMAGE_CONTENT_MISMATCH"
)

// ErrNotImage is returned when the declared content type is not image/*
var ErrNotImage = goerrors.New("uploaded file is not an image", goerrors.CategoryValidation).
	WithTextCode(TextCodeNotAnImage).
	WithCode(goerrors.CodeBadRequest)

// Upload is a file received with a request
type Upload interface {
	Filename() string
	ContentType() string
	Open() (io.ReadCloser, error)
}

// FileHeaderUpload adapts a multipart file header
type FileHeaderUpload struct {
	Header *multipart.FileHeader
}

var _ Upload = FileHeaderUpload{}

// NewFileHeaderUpload wraps fh, nil stays nil
func NewFileHeaderUpload(fh *multipart.FileHeader) Upload {
	if fh == nil {
		return nil
	}
	return FileHeaderUpload{Header: fh}
}

func (u FileHeaderUpload) Filename() string {
	if u.Header == nil {
		return ""
	}
	return u.Header.Filename
}

func (u FileHeaderUpload) ContentType() string {
	if u.Header == nil {
		return ""
	}
	return u.Header.Header.Get("Content-Type")
}

func (u FileHeaderUpload) Open() (io.ReadCloser, error) {
	if u.Header == nil {
		return nil, io.ErrUnexpectedEOF
	}
	return u.Header.Open()
}

// EmbeddableImage is an uploaded image ready to be stored with a record
type EmbeddableImage struct {
	Data         []byte `json:"-"`
	ContentType  string `json:"content_type"`
	DetectedType string `json:"detected_type"`
	Filename     string `json:"filename,omitempty"`
}

// Size returns the number of bytes in the image
func (i *EmbeddableImage) Size() int {
	if i == nil {
		return 0
	}
	return len(i.Data)
}

// IsImageContentType reports whether a declared content type is image/*
func IsImageContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = contentType
	}
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mediaType)), "image/")
}

// DecodeImage reads upload into an EmbeddableImage. A non image content type
// yields ErrNotImage, a read failure an IMAGE_UNREADABLE error and content
// that does not sniff as an image an IMAGE_CONTENT_MISMATCH error. DetectedType is always
// an image/* type on success.
func DecodeImage(upload Upload) (*EmbeddableImage, error) {
	if upload == nil {
		metrics.ImageConversions.WithLabelValues("unreadable").Inc()
		return nil, unreadable(io.ErrUnexpectedEOF, "")
	}

	contentType := upload.ContentType()
	if !IsImageContentType(contentType) {
		metrics.ImageConversions.WithLabelValues("not_image").Inc()
		return nil, ErrNotImage
	}

	file, err := upload.Open()
	if err != nil {
		metrics.ImageConversions.WithLabelValues("unreadable").Inc()
		return nil, unreadable(err, upload.Filename())
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		metrics.ImageConversions.WithLabelValues("unreadable").Inc()
		return nil, unreadable(err, upload.Filename())
	}

	detected := mimetype.Detect(data)
	if !isRasterImage(detected) {
		metrics.ImageConversions.WithLabelValues("mismatch").Inc()
		return nil, mismatch(upload.Filename(), contentType, detected.String())
	}

	metrics.ImageConversions.WithLabelValues("ok").Inc()

	return &EmbeddableImage{
		Data:         data,
		ContentType:  contentType,
		DetectedType: detected.String(),
		Filename:     upload.Filename(),
	}, nil
}

// svg is rejected, it can carry scripts
func isRasterImage(detected *mimetype.MIME) bool {
	if detected == nil || detected.Is("image/svg+xml") {
		return false
	}
	return IsImageContentType(detected.String())
}

func unreadable(err error, filename string) error {
	return goerrors.Wrap(err, goerrors.CategoryBadInput, "uploaded image could not be read").
		WithTextCode(TextCodeImageUnreadable).
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(map[string]any{
			"filename": filename,
		})
}

func mismatch(filename, declared, detected string) error {
	return goerrors.New("uploaded file content is not an image", goerrors.CategoryValidation).
		WithTextCode(TextCodeImageMismatch).
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(map[string]any{
			"filename": filename,
			"declared": declared,
			"detected": detected,
		})
}

// IsNotImage reports whether err came from a non image upload
func IsNotImage(err error) bool {
	return hasTextCode(err, TextCodeNotAnImage)
}

// IsImageMismatch reports whether err came from an upload whose content is
// not an image despite its declared type
func IsImageMismatch(err error) bool {
	return hasTextCode(err, TextCodeImageMismatch)
}

// IsImageUnreadable reports whether err came from a failed upload read
func IsImageUnreadable(err error) bool {
	return hasTextCode(err, TextCodeImageUnreadable)
}

func hasTextCode(err error, code string) bool {
	var richErr *goerrors.Error
	return goerrors.As(err, &richErr) && richErr.TextCode == code
}

// ImageConverter turns uploads into images and swallows failures
type ImageConverter struct {
	logger Logger
}

// ImageConverterOption configures an ImageConverter
type ImageConverterOption func(*ImageConverter)

// WithImageLogger sets the logger used to report dropped uploads
func WithImageLogger(logger Logger) ImageConverterOption {
	return func(c *ImageConverter) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewImageConverter(opts ...ImageConverterOption) *ImageConverter {
	c := &ImageConverter{logger: nopLogger{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Convert returns nil for anything that is not a readable image
func (c *ImageConverter) Convert(upload Upload) *EmbeddableImage {
	img, err := DecodeImage(upload)
	if err != nil {
		c.logger.Debug("upload dropped", "reason", err.Error(), "not_image", IsNotImage(err))
		return nil
	}
	return img
}

var defaultImageConverter = NewImageConverter()

// ImageOrNil converts upload with the default converter
func ImageOrNil(upload Upload) *EmbeddableImage {
	return defaultImageConverter.Convert(upload)
}
