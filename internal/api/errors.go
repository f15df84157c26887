package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/angelmondragon/storefront-client/pkg/types"
)

// decodeError turns a non-2xx response into a typed error. The status decides
// the code unless the body names a known one. Legacy duplicate messages are
// reported as CONFLICT whatever status carried them.
func decodeError(resp *http.Response) *pkgerrors.Error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))

	var body types.ErrorBody
	text := ""
	if err := json.Unmarshal(raw, &body); err == nil {
		text = body.Text()
	} else {
		text = strings.TrimSpace(string(raw))
		if strings.HasPrefix(text, "<") {
			text = ""
		}
	}

	code := pkgerrors.FromStatus(resp.StatusCode)
	if parsed, ok := pkgerrors.ParseCode(body.Code); ok {
		code = parsed
	}
	if isLegacyConflict(text) {
		code = pkgerrors.CodeConflict
	}

	if text == "" {
		text = pkgerrors.MetadataFor(code).PublicMessage
	}
	return pkgerrors.Wrap(code, fmt.Errorf("status %d", resp.StatusCode), text).WithStatus(resp.StatusCode)
}

func isLegacyConflict(text string) bool {
	lowered := strings.ToLower(text)
	for _, msg := range legacyConflictMessages {
		if strings.Contains(lowered, msg) {
			return true
		}
	}
	return false
}
