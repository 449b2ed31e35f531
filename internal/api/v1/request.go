package v1

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/YassinSultan/CoreSystem-Backend/internal/apierr"
	inputsanitize "github.com/YassinSultan/CoreSystem-Backend/internal/api/sanitize"
	"github.com/YassinSultan/CoreSystem-Backend/internal/tracker"
	"github.com/YassinSultan/CoreSystem-Backend/internal/upload"
)

// manifestField is an optional multipart value describing which logical field
// and position each file part belongs to. When absent, positional names like
// protocols[0][file] are parsed by the resolver instead.
const manifestField = "filesManifest"

type manifestEntry struct {
	Part  string `json:"part"`
	Field string `json:"field"`
	Index int    `json:"index"`
}

// parseBodyAndParts reads either a JSON body or a multipart form into a value
// map plus the raw file parts. String values are sanitized unless they carry
// embedded JSON, which the engine decodes and must receive intact.
func parseBodyAndParts(c *gin.Context) (map[string]interface{}, []upload.Part, error) {
	contentType := c.ContentType()
	if strings.HasPrefix(contentType, "multipart/form-data") {
		return parseMultipart(c)
	}
	body, err := parseJSONBody(c.Request)
	return body, nil, err
}

func parseJSONBody(r *http.Request) (map[string]interface{}, error) {
	if r.Body == nil || r.ContentLength == 0 {
		return map[string]interface{}{}, nil
	}
	var body map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		if err == io.EOF {
			return map[string]interface{}{}, nil
		}
		return nil, apierr.Validation("صيغة الطلب غير صالحة")
	}
	return inputsanitize.Body(body), nil
}

func parseMultipart(c *gin.Context) (map[string]interface{}, []upload.Part, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, nil, apierr.Validation("صيغة الطلب غير صالحة")
	}

	body := make(map[string]interface{}, len(form.Value))
	var manifest []manifestEntry
	for key, values := range form.Value {
		if key == manifestField {
			if len(values) > 0 {
				if err := json.Unmarshal([]byte(values[0]), &manifest); err != nil {
					return nil, nil, apierr.Validation("صيغة %s غير صالحة", manifestField)
				}
			}
			continue
		}
		if len(values) == 1 {
			body[key] = sanitizeFormValue(values[0])
			continue
		}
		list := make([]interface{}, 0, len(values))
		for _, v := range values {
			list = append(list, sanitizeFormValue(v))
		}
		body[key] = list
	}

	overrides := make(map[string]manifestEntry, len(manifest))
	for _, entry := range manifest {
		overrides[entry.Part] = entry
	}

	var parts []upload.Part
	for key, headers := range form.File {
		for _, header := range headers {
			data, err := readFilePart(header)
			if err != nil {
				return nil, nil, apierr.Storage(err)
			}
			part := upload.Part{
				FieldName:    key,
				OriginalName: header.Filename,
				Data:         data,
			}
			if entry, ok := overrides[key]; ok {
				part.LogicalField = entry.Field
				part.Position = entry.Index
			}
			parts = append(parts, part)
		}
	}
	return body, parts, nil
}

// sanitizeFormValue leaves embedded JSON and the null sentinel untouched so
// the engine can still decode them.
func sanitizeFormValue(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == tracker.NullSentinel {
		return trimmed
	}
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return trimmed
	}
	return inputsanitize.Text(value)
}

func readFilePart(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}
