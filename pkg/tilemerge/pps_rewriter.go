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

	"github.com/q191201771/naza/pkg/nazaerrors"
	"github.com/q191201771/tilemerge/pkg/base"
	"github.com/q191201771/tilemerge/pkg/expgolomb"
	"github.com/q191201771/tilemerge/pkg/h2645"
	"github.com/q191201771/tilemerge/pkg/hevc"
)

// TileGrid 输出图像的tile划分，单位为亮度像素
type TileGrid struct {
	ColumnWidths   []uint32
	RowHeights     []uint32
	UniformSpacing bool
}

func (g TileGrid) NumColumns() int {
	return len(g.ColumnWidths)
}

func (g TileGrid) NumRows() int {
	return len(g.RowHeights)
}

// Validate 除最后一列和最后一行外，列宽和行高都必须是CTU的整数倍
func (g TileGrid) Validate() error {
	if len(g.ColumnWidths) == 0 || len(g.RowHeights) == 0 {
		return fmt.Errorf("%w. empty grid, columns=%d, rows=%d", base.ErrTileMergeIrregularGrid, len(g.ColumnWidths), len(g.RowHeights))
	}
	for i := 0; i < len(g.ColumnWidths)-1; i++ {
		if g.ColumnWidths[i]%CtuSize != 0 {
			return base.NewErrTileMergeTileNotCtuAligned("column width", g.ColumnWidths[i])
		}
	}
	for i := 0; i < len(g.RowHeights)-1; i++ {
		if g.RowHeights[i]%CtuSize != 0 {
			return base.NewErrTileMergeTileNotCtuAligned("row height", g.RowHeights[i])
		}
	}
	return nil
}

// RewritePpsTileGrid 打开pps中的tiles_enabled_flag并写入tile划分，其他字段保持不变
//
// tiles相关语法之前的ue、se字段重新编码，之后的内容按位原样拷贝。
// 原pps已经开启tile时，原有的tile划分被替换。
//
// @param nal: 包含2字节nal header，可以包含防竞争字节
//
// @return 新的pps nal，包含防竞争字节
//
func RewritePpsTileGrid(nal []byte, grid TileGrid) ([]byte, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	pps, err := hevc.ParsePps(nal)
	if err != nil {
		return nil, err
	}

	rbsp := h2645.RemoveEmulationPrevention(nal)
	stopBitPos := hevc.RbspStopBitPos(rbsp)
	if stopBitPos < int(pps.TilesSectionEndBits) {
		return nil, nazaerrors.Wrap(base.ErrHevc)
	}

	r := expgolomb.NewReader(rbsp)
	pr := &ppsCopier{r: r, w: expgolomb.NewWriter(len(rbsp) + 4*(grid.NumColumns()+grid.NumRows()))}

	pr.copyBits(16) // nal header
	pr.copyUe()     // pps_pic_parameter_set_id
	pr.copyUe()     // pps_seq_parameter_set_id
	pr.copyBits(7)  // dependent_slice_segments_enabled_flag ~ cabac_init_present_flag
	pr.copyUe()     // num_ref_idx_l0_default_active_minus1
	pr.copyUe()     // num_ref_idx_l1_default_active_minus1
	pr.copySe()     // init_qp_minus26
	pr.copyBits(2)  // constrained_intra_pred_flag, transform_skip_enabled_flag

	// cu_qp_delta_enabled_flag
	if pr.copyBits(1) == 1 {
		pr.copyUe() // diff_cu_qp_delta_depth
	}
	pr.copySe()    // pps_cb_qp_offset
	pr.copySe()    // pps_cr_qp_offset
	pr.copyBits(4) // pps_slice_chroma_qp_offsets_present_flag ~ transquant_bypass_enabled_flag
	if pr.err != nil {
		return nil, pr.err
	}
	if r.Pos() != pps.TilesEnabledFlagBits {
		return nil, fmt.Errorf("%w. tiles_enabled_flag position mismatch, pos=%d, expected=%d", base.ErrHevc, r.Pos(), pps.TilesEnabledFlagBits)
	}

	w := pr.w
	w.WriteBit(1) // tiles_enabled_flag
	w.WriteBit(pps.EntropyCodingSyncEnabledFlag)
	w.WriteUe(uint32(grid.NumColumns() - 1))
	w.WriteUe(uint32(grid.NumRows() - 1))
	w.WriteFlag(grid.UniformSpacing)
	if !grid.UniformSpacing {
		for i := 0; i < grid.NumColumns()-1; i++ {
			w.WriteUe(grid.ColumnWidths[i]/CtuSize - 1) // column_width_minus1
		}
		for i := 0; i < grid.NumRows()-1; i++ {
			w.WriteUe(grid.RowHeights[i]/CtuSize - 1) // row_height_minus1
		}
	}
	w.WriteBit(1) // loop_filter_across_tiles_enabled_flag

	// 跳过原有的tiles_enabled_flag、entropy_coding_sync_enabled_flag以及tile划分
	if err = r.SkipBits(pps.TilesSectionEndBits - r.Pos()); err != nil {
		return nil, err
	}
	if err = w.CopyBits(r, uint(stopBitPos)-r.Pos()); err != nil {
		return nil, err
	}
	w.WriteTrailingBits()

	return h2645.AddEmulationPrevention(w.Bytes()), nil
}

// ppsCopier 读取一个字段后立即写入，出错后的操作都是空操作
type ppsCopier struct {
	r   *expgolomb.Reader
	w   *expgolomb.Writer
	err error
}

func (pc *ppsCopier) copyBits(n uint) uint32 {
	if pc.err != nil {
		return 0
	}
	var v uint32
	v, pc.err = pc.r.ReadBits(n)
	pc.w.WriteBits(n, v)
	return v
}

func (pc *ppsCopier) copyUe() {
	if pc.err != nil {
		return
	}
	var v uint32
	v, pc.err = pc.r.ReadUe()
	pc.w.WriteUe(v)
}

func (pc *ppsCopier) copySe() {
	if pc.err != nil {
		return
	}
	var v int32
	v, pc.err = pc.r.ReadSe()
	pc.w.WriteSe(v)
}
