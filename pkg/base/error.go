// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

import (
	"errors"
	"fmt"
)

// ----- 通用的 ---------------------------------------------------------------------------------------------------------

var ErrShortBuffer = errors.New("tilemerge: buffer too short")

// ----- pkg/expgolomb -------------------------------------------------------------------------------------------------

var ErrExpGolomb = errors.New("tilemerge.expgolomb: fxxk")

// ----- pkg/h2645 -----------------------------------------------------------------------------------------------------

var (
	ErrH2645NaluLength    = errors.New("tilemerge.h2645: invalid nalu length field")
	ErrH2645LengthSizeErr = errors.New("tilemerge.h2645: length size should be 1~4")
)

// ----- pkg/hevc ------------------------------------------------------------------------------------------------------

var (
	ErrHevc                     = errors.New("tilemerge.hevc: fxxk")
	ErrHevcUnsupported          = errors.New("tilemerge.hevc: unsupported syntax")
	ErrHevcDcr                  = errors.New("tilemerge.hevc: invalid decoder configuration record")
	ErrHevcParameterSetNotFound = errors.New("tilemerge.hevc: parameter set not found")
)

func NewErrHevcParameterSetNotFound(typ string, id uint32) error {
	return fmt.Errorf("%w. type=%s, id=%d", ErrHevcParameterSetNotFound, typ, id)
}

func NewErrHevcUnsupported(what string) error {
	return fmt.Errorf("%w. what=%s", ErrHevcUnsupported, what)
}

// ----- pkg/tilemerge -------------------------------------------------------------------------------------------------

var (
	ErrTileMergeNonCompliantBitstream = errors.New("tilemerge: non compliant bitstream")
	ErrTileMergeMissingParameterSet   = errors.New("tilemerge: missing parameter set")
	ErrTileMergeCapacityExceeded      = errors.New("tilemerge: tile stream capacity exceeded")
	ErrTileMergeTileNotCtuAligned     = errors.New("tilemerge: tile size not aligned to ctu")
	ErrTileMergeIrregularGrid         = errors.New("tilemerge: tile geometry does not fit the grid")
	ErrTileMergeGeometryChanged       = errors.New("tilemerge: geometry of placed tile changed")
	ErrTileMergeRemovalUnsupported    = errors.New("tilemerge: removing tile stream is not supported")
	ErrTileMergeSourceNotFound        = errors.New("tilemerge: source not found")
)

func NewErrTileMergeCapacityExceeded(max int) error {
	return fmt.Errorf("%w. max=%d", ErrTileMergeCapacityExceeded, max)
}

func NewErrTileMergeSourceNotFound(idx int) error {
	return fmt.Errorf("%w. idx=%d", ErrTileMergeSourceNotFound, idx)
}

func NewErrTileMergeMissingParameterSet(err error) error {
	return fmt.Errorf("%w. err=%s", ErrTileMergeMissingParameterSet, err.Error())
}

func NewErrTileMergeNonCompliantBitstream(err error) error {
	return fmt.Errorf("%w. err=%s", ErrTileMergeNonCompliantBitstream, err.Error())
}

func NewErrTileMergeTileNotCtuAligned(what string, size uint32) error {
	return fmt.Errorf("%w. %s=%d", ErrTileMergeTileNotCtuAligned, what, size)
}

func NewErrTileMergeIrregularGrid(idx int, width, height uint32, expectedWidth, expectedHeight uint32) error {
	return fmt.Errorf("%w. idx=%d, size=%dx%d, expected=%dx%d", ErrTileMergeIrregularGrid, idx, width, height, expectedWidth, expectedHeight)
}

func NewErrTileMergeGeometryChanged(idx int, oldWidth, oldHeight, width, height uint32) error {
	return fmt.Errorf("%w. idx=%d, old=%dx%d, new=%dx%d", ErrTileMergeGeometryChanged, idx, oldWidth, oldHeight, width, height)
}

// ----- app/tilemerge -------------------------------------------------------------------------------------------------

var (
	ErrConfig            = errors.New("tilemerge.app: invalid config")
	ErrSourceFormat      = errors.New("tilemerge.app: unsupported source format")
	ErrSourceNoHevcTrack = errors.New("tilemerge.app: no hevc track in source")
)
