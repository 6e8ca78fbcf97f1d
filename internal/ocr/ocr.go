// Package ocr is a client for the image-to-text service that feeds source
// lines into a session.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"slices"
	"strings"
)

// Languages the OCR service accepts.
var Languages = []string{
	"English", "Japanese", "Korean", "Chinese", "French",
	"Spanish", "Italian", "German", "Dutch", "Russian",
}

var ErrUnsupportedLanguage = errors.New("unsupported OCR language")

// Result is a successful extraction.
type Result struct {
	Transcript  string `json:"transcript"`
	DownloadURL string `json:"download_url"`
}

// ServiceError is an {error} reply from the service.
type ServiceError struct {
	Status  int
	Message string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("ocr error (%d): %s", e.Status, e.Message)
}

type Client struct {
	url    string
	client *http.Client
}

// New returns a client for the extraction endpoint at url. A nil httpClient
// uses http.DefaultClient.
func New(url string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{url: url, client: httpClient}
}

// Extract uploads image under filename and returns the transcript.
func (c *Client) Extract(ctx context.Context, filename string, image io.Reader, language string) (*Result, error) {
	if !slices.Contains(Languages, language) {
		return nil, fmt.Errorf("%w: %s (supported: %s)", ErrUnsupportedLanguage, language, strings.Join(Languages, ", "))
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, image); err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if err := mw.WriteField("language", language); err != nil {
		return nil, fmt.Errorf("failed to write language field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ocr request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var reply struct {
		Result
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &reply); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, &ServiceError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
		}
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if reply.Error != "" || resp.StatusCode != http.StatusOK {
		msg := reply.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &ServiceError{Status: resp.StatusCode, Message: msg}
	}
	return &reply.Result, nil
}

// TranscriptLines returns the text lines of a transcript, without the
// "//filename" headers and blank lines.
func TranscriptLines(transcript string) []string {
	var lines []string
	for _, l := range strings.Split(strings.ReplaceAll(transcript, "\r\n", "\n"), "\n") {
		t := strings.TrimSpace(l)
		if t == "" || strings.HasPrefix(t, "//") {
			continue
		}
		lines = append(lines, l)
	}
	return lines
}
