// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package tilemerge

import (
	"fmt"

	"github.com/q191201771/tilemerge/pkg/base"
	"github.com/q191201771/tilemerge/pkg/expgolomb"
	"github.com/q191201771/tilemerge/pkg/h2645"
	"github.com/q191201771/tilemerge/pkg/hevc"
)

type SliceRewriteParam struct {
	// Address 合并后图像中的slice_segment_address，为0时表示图像的第一个slice
	Address uint32

	// BaselineInitQpMinus26 输出pps中的init_qp_minus26
	BaselineInitQpMinus26 int32

	// CanvasWidth CanvasHeight 合并后图像的宽高，用于计算slice_segment_address的位数。
	// 为0时使用原流的位数
	CanvasWidth  uint32
	CanvasHeight uint32
}

// RewriteSliceHeader 修改slice header中的地址以及qp，slice data原样拷贝
//
// 输出的slice按开启了tile的pps来解释，所以num_entry_point_offsets总是写0，
// slice_segment_header_extension被丢弃
//
// @param nal: 包含2字节nal header，可以包含防竞争字节
// @param sh:  由 ctx 解析 nal 得到
//
// @return misaligned: 原slice header结束后的byte_alignment()不是以1开始，此时输出的slice可能无法解码
//
func RewriteSliceHeader(nal []byte, sh *hevc.SliceHeader, ctx *hevc.Context, param SliceRewriteParam) (out []byte, misaligned bool, err error) {
	pps, sps, err := ctx.GetPpsAndSps(sh.PpsId)
	if err != nil {
		return nil, false, base.NewErrTileMergeMissingParameterSet(err)
	}

	nbCtus := sps.PicSizeInCtbsY
	if param.CanvasWidth != 0 && param.CanvasHeight != 0 {
		ctbSize := sps.CtbSizeY
		nbCtus = ((param.CanvasWidth + ctbSize - 1) / ctbSize) * ((param.CanvasHeight + ctbSize - 1) / ctbSize)
	}
	if param.Address >= nbCtus {
		return nil, false, fmt.Errorf("%w. address out of range, address=%d, ctus=%d", base.ErrHevc, param.Address, nbCtus)
	}
	addressBits := uint(hevc.CeilLog2(nbCtus))

	rbsp := h2645.RemoveEmulationPrevention(nal)
	r := expgolomb.NewReader(rbsp)
	w := expgolomb.NewWriter(len(rbsp) + 16)

	if err = w.CopyBits(r, 16); err != nil {
		return nil, false, err
	}

	// first_slice_segment_in_pic_flag
	firstSliceSegmentInPicFlag, err := r.ReadBit()
	if err != nil {
		return nil, false, err
	}
	if param.Address == 0 {
		w.WriteBit(1)
	} else {
		w.WriteBit(0)
	}

	if hevc.IsIrapNalu(sh.NaluType) {
		if err = w.CopyBits(r, 1); err != nil { // no_output_of_prior_pics_flag
			return nil, false, err
		}
	}

	ppsId, err := r.ReadUe()
	if err != nil {
		return nil, false, err
	}
	w.WriteUe(ppsId)

	// 原来的dependent_slice_segment_flag和slice_segment_address
	var dependentSliceSegmentFlag uint8
	if firstSliceSegmentInPicFlag == 0 {
		if pps.DependentSliceSegmentsEnabledFlag == 1 {
			if dependentSliceSegmentFlag, err = r.ReadBit(); err != nil {
				return nil, false, err
			}
		}
		if err = r.SkipBits(uint(sps.SliceSegmentAddressBits)); err != nil {
			return nil, false, err
		}
	}

	if param.Address > 0 {
		if pps.DependentSliceSegmentsEnabledFlag == 1 {
			w.WriteBit(dependentSliceSegmentFlag)
		}
		w.WriteBits(addressBits, param.Address)
	}

	if dependentSliceSegmentFlag == 0 {
		if sh.Offsets.QpDeltaStartBits < 0 {
			return nil, false, fmt.Errorf("%w. no slice_qp_delta offset in independent slice", base.ErrHevc)
		}
		if err = copyTo(w, r, uint(sh.Offsets.QpDeltaStartBits)); err != nil {
			return nil, false, err
		}
		if _, err = r.ReadSe(); err != nil {
			return nil, false, err
		}
		w.WriteSe(pps.InitQpMinus26 + sh.SliceQpDelta - param.BaselineInitQpMinus26)
	}

	if err = copyTo(w, r, sh.Offsets.EntryPointStartBits); err != nil {
		return nil, false, err
	}
	w.WriteUe(0) // num_entry_point_offsets
	if pps.SliceSegmentHeaderExtensionPresentFlag == 1 {
		w.WriteUe(0) // slice_segment_header_extension_length
	}

	// 丢弃原来的entry point以及slice header extension
	if sh.Offsets.HeaderEndBits < r.Pos() {
		return nil, false, fmt.Errorf("%w. header end before reader, end=%d, pos=%d", base.ErrHevc, sh.Offsets.HeaderEndBits, r.Pos())
	}
	if err = r.SkipBits(sh.Offsets.HeaderEndBits - r.Pos()); err != nil {
		return nil, false, err
	}

	// byte_alignment()
	alignmentBitEqualToOne, err := r.ReadBit()
	if err != nil {
		return nil, false, err
	}
	if alignmentBitEqualToOne != 1 {
		misaligned = true
		Log.Warnf("slice header not properly aligned. type=%s, address=%d", hevc.CalcNaluTypeReadable(nal), param.Address)
	}
	if err = r.ByteAlign(); err != nil {
		return nil, false, err
	}
	w.WriteBit(1)
	w.ByteAlign()

	header := w.Bytes()
	payload := rbsp[r.Pos()/8:]
	buf := make([]byte, 0, len(header)+len(payload))
	buf = append(buf, header...)
	buf = append(buf, payload...)
	return h2645.AddEmulationPrevention(buf), misaligned, nil
}

// copyTo 从r中原样拷贝到pos位置
func copyTo(w *expgolomb.Writer, r *expgolomb.Reader, pos uint) error {
	if pos < r.Pos() {
		return fmt.Errorf("%w. offset before reader, offset=%d, pos=%d", base.ErrHevc, pos, r.Pos())
	}
	return w.CopyBits(r, pos-r.Pos())
}
