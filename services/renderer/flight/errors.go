// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package flight

import (
	"errors"
	"fmt"
)

// ErrNotFound signals that a rendered slice terminated without a page
// module. The walk never interprets it; the HTTP layer maps it to a 404.
var ErrNotFound = errors.New("no page module for route")

// RedirectError is a navigation signal thrown by a component renderer.
// It propagates through the walk uncaught; the HTTP layer maps it to a
// redirect response.
type RedirectError struct {
	// Location is the redirect target.
	Location string

	// Permanent selects 308 over 307 at the HTTP layer.
	Permanent bool
}

func (e *RedirectError) Error() string {
	return fmt.Sprintf("redirect to %s", e.Location)
}
