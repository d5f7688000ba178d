// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package hevc

import (
	"fmt"

	"github.com/q191201771/naza/pkg/nazaerrors"
	"github.com/q191201771/tilemerge/pkg/base"
	"github.com/q191201771/tilemerge/pkg/expgolomb"
	"github.com/q191201771/tilemerge/pkg/h2645"
)

// RewriteSpsGeometry 修改sps中的图像宽高，其他字段按位原样拷贝
//
// pic_width_in_luma_samples和pic_height_in_luma_samples向上对齐到MinCbSizeY，
// 多出来的部分通过conformance window裁剪掉，使得裁剪后的图像正好是 width x height
//
// @param nal: 包含2字节nal header，可以包含防竞争字节
//
// @return 新的sps nal，包含防竞争字节
//
func RewriteSpsGeometry(nal []byte, width, height uint32) ([]byte, error) {
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w. invalid geometry, width=%d, height=%d", base.ErrHevc, width, height)
	}
	sps, err := ParseSps(nal)
	if err != nil {
		return nil, err
	}

	rbsp := h2645.RemoveEmulationPrevention(nal)
	stopBitPos := RbspStopBitPos(rbsp)
	if stopBitPos < int(sps.GeometryEndBits) {
		return nil, nazaerrors.Wrap(base.ErrHevc)
	}

	codedWidth := alignUp(width, sps.MinCbSizeY)
	codedHeight := alignUp(height, sps.MinCbSizeY)
	cropRight := codedWidth - width
	cropBottom := codedHeight - height
	if cropRight%sps.SubWidthC != 0 || cropBottom%sps.SubHeightC != 0 {
		return nil, fmt.Errorf("%w. geometry not aligned to chroma subsampling, width=%d, height=%d", base.ErrHevcUnsupported, width, height)
	}

	r := expgolomb.NewReader(rbsp)
	w := expgolomb.NewWriter(len(rbsp) + 8)
	if err = w.CopyBits(r, sps.GeometryStartBits); err != nil {
		return nil, err
	}
	w.WriteUe(codedWidth)
	w.WriteUe(codedHeight)
	if cropRight == 0 && cropBottom == 0 {
		w.WriteBit(0)
	} else {
		w.WriteBit(1)
		w.WriteUe(0)
		w.WriteUe(cropRight / sps.SubWidthC)
		w.WriteUe(0)
		w.WriteUe(cropBottom / sps.SubHeightC)
	}
	if err = r.SkipBits(sps.GeometryEndBits - sps.GeometryStartBits); err != nil {
		return nil, err
	}
	if err = w.CopyBits(r, uint(stopBitPos)-sps.GeometryEndBits); err != nil {
		return nil, err
	}
	w.WriteTrailingBits()

	return h2645.AddEmulationPrevention(w.Bytes()), nil
}

func alignUp(v, align uint32) uint32 {
	return (v + align - 1) / align * align
}
