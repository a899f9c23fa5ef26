package utils

import (
	"bytes"
	"mime/multipart"
	"net/textproto"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestFileHeader creates a multipart.FileHeader for testing
func createTestFileHeader(t *testing.T, filename string, size int64, content []byte) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", "application/octet-stream")
	part, err := writer.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	reader := multipart.NewReader(body, writer.Boundary())
	form, err := reader.ReadForm(int64(len(content)) + 1024)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })

	require.NotEmpty(t, form.File["file"])
	fileHeader := form.File["file"][0]
	// Override size for testing purposes
	fileHeader.Size = size
	return fileHeader
}

func TestValidateDocumentFile_AllowedFormats(t *testing.T) {
	tests := []struct {
		filename    string
		contentType string
	}{
		{"id.pdf", "application/pdf"},
		{"id.png", "image/png"},
		{"id.jpg", "image/jpeg"},
		{"id.JPEG", "image/jpeg"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			content := []byte("fake content")
			fh := createTestFileHeader(t, tt.filename, int64(len(content)), content)

			contentType, err := ValidateDocumentFile(fh)
			require.NoError(t, err)
			assert.Equal(t, tt.contentType, contentType)
		})
	}
}

func TestValidateDocumentFile_FileTooLarge(t *testing.T) {
	content := []byte("fake pdf content")
	fh := createTestFileHeader(t, "large.pdf", 11*1024*1024, content)

	_, err := ValidateDocumentFile(fh)
	require.Error(t, err)

	fileErr, ok := err.(*FileUploadError)
	require.True(t, ok, "Error should be of type FileUploadError")
	assert.Equal(t, "FILE_TOO_LARGE", fileErr.Code)
	assert.Contains(t, fileErr.Message, "File size exceeds maximum allowed size")
}

func TestValidateDocumentFile_InvalidFormat(t *testing.T) {
	for _, name := range []string{"test.gif", "testfile", "archive.zip"} {
		t.Run(name, func(t *testing.T) {
			content := []byte("fake content")
			fh := createTestFileHeader(t, name, int64(len(content)), content)

			_, err := ValidateDocumentFile(fh)
			require.Error(t, err)

			fileErr, ok := err.(*FileUploadError)
			require.True(t, ok, "Error should be of type FileUploadError")
			assert.Equal(t, "INVALID_FILE_FORMAT", fileErr.Code)
		})
	}
}

func TestValidateDocumentFile_Missing(t *testing.T) {
	_, err := ValidateDocumentFile(nil)
	require.Error(t, err)
	assert.Equal(t, "FILE_REQUIRED", err.(*FileUploadError).Code)
}

func TestReadUploadedFile(t *testing.T) {
	content := []byte("%PDF-1.4 proof")
	fh := createTestFileHeader(t, "proof.pdf", int64(len(content)), content)

	got, err := ReadUploadedFile(fh)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestDocumentKey(t *testing.T) {
	at := time.Unix(1700000000, 0)
	key := DocumentKey("prov-1", "idProof", "/tmp/my id.pdf", at)
	assert.Equal(t, "providers/prov-1/idProof/1700000000_my_id.pdf", key)
}

func TestFileUploadError_Error(t *testing.T) {
	err := &FileUploadError{
		Code:    "TEST_CODE",
		Message: "Test error message",
	}

	assert.Equal(t, "Test error message", err.Error())
}
