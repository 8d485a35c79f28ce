package twilio

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessage_ContentTemplate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC123", user)
		assert.Equal(t, "secret", pass)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "whatsapp:+14155238886", r.PostForm.Get("From"))
		assert.Equal(t, "whatsapp:+573001112233", r.PostForm.Get("To"))
		assert.Equal(t, "HX999", r.PostForm.Get("ContentSid"))
		assert.Empty(t, r.PostForm.Get("Body"))

		var vars map[string]string
		require.NoError(t, json.Unmarshal([]byte(r.PostForm.Get("ContentVariables")), &vars))
		assert.Equal(t, "line one\n\"quoted\"", vars["message"])

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sid": "SM1"}`))
	}))
	defer srv.Close()

	c := NewClient("AC123", "secret", "+14155238886", WithBaseURL(srv.URL), WithContentTemplate("HX999"))
	sid, err := c.SendMessage(context.Background(), "+573001112233", "line one\n\"quoted\"")
	require.NoError(t, err)
	assert.Equal(t, "SM1", sid)
}

func TestSendMessage_PlainBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "hello", r.PostForm.Get("Body"))
		assert.Equal(t, "whatsapp:+1555", r.PostForm.Get("To"))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sid": "SM2"}`))
	}))
	defer srv.Close()

	c := NewClient("AC1", "t", "whatsapp:+1444", WithBaseURL(srv.URL))
	sid, err := c.SendMessage(context.Background(), "whatsapp:+1555", "hello")
	require.NoError(t, err)
	assert.Equal(t, "SM2", sid)
}

func TestSendMessage_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code": 21211, "message": "Invalid 'To' Phone Number"}`))
	}))
	defer srv.Close()

	c := NewClient("AC1", "t", "+1444", WithBaseURL(srv.URL))
	_, err := c.SendMessage(context.Background(), "bad", "hello")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 21211, apiErr.Code)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}
