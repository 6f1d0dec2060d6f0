// Copyright ©2023 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package animation provides activity indicator frame sequences built from
// sprite sheets and animated GIFs.
//
// Frame sequences are ordered slices of rasters. They are intended to be
// looped by the caller; no timing information is retained.
package animation
