package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

// Embedder maps images and texts into the same embedding space.
type Embedder interface {
	EmbedImage(ctx context.Context, filename string, image []byte) ([]float64, error)
	EmbedTexts(ctx context.Context, texts []string) ([][]float64, error)
}

// HTTPEmbedder calls an embedding server exposing
//
//	POST /embed/image  multipart "file"   -> {"embedding": [...]}
//	POST /embed/text   {"texts": [...]}   -> {"embeddings": [[...], ...]}
type HTTPEmbedder struct {
	baseURL string
	client  *http.Client
}

func NewHTTPEmbedder(baseURL string, client *http.Client) *HTTPEmbedder {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPEmbedder{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

type imageEmbeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

type textEmbeddingRequest struct {
	Texts []string `json:"texts"`
}

type textEmbeddingResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

func (e *HTTPEmbedder) EmbedImage(ctx context.Context, filename string, image []byte) ([]float64, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("HTTPEmbedder - EmbedImage - w.CreateFormFile: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("HTTPEmbedder - EmbedImage - part.Write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("HTTPEmbedder - EmbedImage - w.Close: %w", err)
	}

	var resp imageEmbeddingResponse
	if err := e.post(ctx, "/embed/image", w.FormDataContentType(), &body, &resp); err != nil {
		return nil, fmt.Errorf("HTTPEmbedder - EmbedImage: %w", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("HTTPEmbedder - EmbedImage: empty embedding")
	}

	return resp.Embedding, nil
}

func (e *HTTPEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float64, error) {
	jsonBody, err := json.Marshal(textEmbeddingRequest{Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("HTTPEmbedder - EmbedTexts - json.Marshal: %w", err)
	}

	var resp textEmbeddingResponse
	if err := e.post(ctx, "/embed/text", "application/json", bytes.NewReader(jsonBody), &resp); err != nil {
		return nil, fmt.Errorf("HTTPEmbedder - EmbedTexts: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("HTTPEmbedder - EmbedTexts: got %d embeddings for %d texts", len(resp.Embeddings), len(texts))
	}

	return resp.Embeddings, nil
}

func (e *HTTPEmbedder) post(ctx context.Context, path, contentType string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("error building request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("error decoding response: %w", err)
	}

	return nil
}
