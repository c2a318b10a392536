package validators

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbtypes "github.com/angelmondragon/memorial-backend/pkg/db/types"
	pkgerrors "github.com/angelmondragon/memorial-backend/pkg/errors"
)

type formFile struct {
	field, name, body string
}

func multipartRequest(t *testing.T, method string, fields map[string]string, files []formFile) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = io.WriteString(part, f.body)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, "/api/memorials", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestParseMemorialFormMapsFields(t *testing.T) {
	req := multipartRequest(t, http.MethodPost, map[string]string{
		"name":            "Test",
		"hebrewName":      "טסט",
		"timeline":        `[{"year":"1950","title":"Born","description":"Haifa"},{"year":" ","title":"","description":""}]`,
		"tehilimChapters": "23, 91,,121",
		"heroImageIndex":  "1",
	}, []formFile{
		{field: "files", name: "a.jpg", body: "a"},
		{field: "files", name: "b.jpg", body: "b"},
		{field: "headerImage", name: "hero.png", body: "h"},
	})

	input, err := ParseMemorialForm(req, 1<<20)
	require.NoError(t, err)

	require.NotNil(t, input.Name)
	assert.Equal(t, "Test", *input.Name)
	require.NotNil(t, input.HebrewName)
	assert.Nil(t, input.Biography)
	assert.Nil(t, input.Mishnayot)

	require.NotNil(t, input.Timeline)
	assert.Equal(t, dbtypes.Timeline{{Year: "1950", Title: "Born", Description: "Haifa"}}, *input.Timeline)
	require.NotNil(t, input.TehilimChapters)
	assert.Equal(t, dbtypes.CSVList{"23", "91", "121"}, *input.TehilimChapters)
	require.NotNil(t, input.HeroImageIndex)
	assert.Equal(t, 1, *input.HeroImageIndex)

	require.Len(t, input.Files, 2)
	assert.Equal(t, "a.jpg", input.Files[0].FileName)
	require.NotNil(t, input.Header)
	assert.Equal(t, "hero.png", input.Header.FileName)
}

func TestParseMemorialFormRejectsBadFields(t *testing.T) {
	cases := map[string]map[string]string{
		"timeline":       {"name": "x", "timeline": "{not json"},
		"heroImageIndex": {"name": "x", "heroImageIndex": "first"},
	}
	for field, fields := range cases {
		t.Run(field, func(t *testing.T) {
			_, err := ParseMemorialForm(multipartRequest(t, http.MethodPost, fields, nil), 1<<20)
			require.Error(t, err)
			assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
		})
	}
}

func TestParseMemorialInputJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/api/memorials/x", strings.NewReader(
		`{"biography":"updated","tehilimChapters":["1","2"],"mishnayot":"a,b","timeline":[{"year":"2000","title":"t","description":""}]}`))
	req.Header.Set("Content-Type", "application/json")

	input, err := ParseMemorialInput(req, 0)
	require.NoError(t, err)

	assert.Nil(t, input.Name)
	require.NotNil(t, input.Biography)
	assert.Equal(t, "updated", *input.Biography)
	assert.Equal(t, dbtypes.CSVList{"1", "2"}, *input.TehilimChapters)
	assert.Equal(t, dbtypes.CSVList{"a", "b"}, *input.Mishnayot)
	require.NotNil(t, input.Timeline)
	assert.Len(t, *input.Timeline, 1)
	assert.Empty(t, input.Files)
}

func TestParseUploadFilesRequiresMultipart(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/memorials/x/upload", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	_, err := ParseUploadFiles(req, 0)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	files, err := ParseUploadFiles(multipartRequest(t, http.MethodPost, nil, []formFile{{field: "files", name: "clip.mp4", body: "v"}}), 0)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "clip.mp4", files[0].FileName)
}
