// Copyright (c) Elliot Nunn
// Licensed under the MIT license

// Package filelock takes advisory whole-file locks so that two editors
// cannot rewrite the same container at once.
package filelock

import "errors"

var ErrLocked = errors.New("file is locked by another process")
