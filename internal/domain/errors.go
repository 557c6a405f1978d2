package domain

import (
	"fmt"

	appErrors "geoform/internal/errors"
)

func invalidOptionError(reason string) error {
	return appErrors.New(appErrors.CodeParse, fmt.Sprintf("invalid option: %s", reason), nil)
}

func invalidLevelError(raw string) error {
	return appErrors.New(appErrors.CodeInvalidSelection, fmt.Sprintf("unknown level: %q", raw), nil)
}
