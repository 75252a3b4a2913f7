package cloudinary_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"smartbite/pkg/cloudinary"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_RequiresCredentials(t *testing.T) {
	_, err := cloudinary.NewClient(cloudinary.Config{CloudName: "demo"})
	assert.ErrorIs(t, err, cloudinary.ErrNotConfigured)
}

func TestClient_Upload(t *testing.T) {
	var gotPath, gotPublicID, gotAPIKey, gotSignature, gotFile string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotPublicID = r.FormValue("public_id")
		gotAPIKey = r.FormValue("api_key")
		gotSignature = r.FormValue("signature")
		f, _, err := r.FormFile("file")
		require.NoError(t, err)
		data, _ := io.ReadAll(f)
		gotFile = string(data)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"public_id":  "latte",
			"secure_url": "https://res.cloudinary.com/demo/latte.png",
		})
	}))
	defer srv.Close()

	client, err := cloudinary.NewClient(cloudinary.Config{CloudName: "demo", APIKey: "key", APISecret: "secret", BaseURL: srv.URL})
	require.NoError(t, err)

	url, err := client.Upload(context.Background(), "latte.png", []byte("png-bytes"), "latte")
	require.NoError(t, err)
	assert.Equal(t, "https://res.cloudinary.com/demo/latte.png", url)
	assert.True(t, strings.HasPrefix(gotPath, "/v1_1/demo/"), gotPath)
	assert.True(t, strings.HasSuffix(gotPath, "/upload"), gotPath)
	assert.Equal(t, "latte", gotPublicID)
	assert.Equal(t, "key", gotAPIKey)
	assert.NotEmpty(t, gotSignature)
	assert.Equal(t, "png-bytes", gotFile)
}

func TestClient_UploadReportsRemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Invalid Signature"}}`))
	}))
	defer srv.Close()

	client, err := cloudinary.NewClient(cloudinary.Config{CloudName: "demo", APIKey: "key", APISecret: "secret", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.Upload(context.Background(), "latte.png", []byte("x"), "latte")
	assert.ErrorContains(t, err, "Invalid Signature")
}
