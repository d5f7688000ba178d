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
)

type TileGeometry struct {
	Width  uint32
	Height uint32
}

// Placement tile在输出网格中的位置
type Placement struct {
	Index int // 第几个被放置的tile
	Row   int
	Col   int
}

// TileOffset tile左上角在输出图像中的位置
type TileOffset struct {
	X       uint32 // 左边所有列的宽度之和，单位为像素
	Y       uint32 // 上边所有行的高度之和，单位为像素
	Address uint32 // 左上角CTU按光栅扫描的序号
}

// ILayoutPolicy 决定每个输入流在输出网格中的位置
//
// 按输入流完成配置的顺序调用 Place 。每次 Place 成功后网格可能发生变化，之前 Offset 的结果需要重新计算。
type ILayoutPolicy interface {
	Place(geo TileGeometry) (Placement, error)

	Offset(p Placement) TileOffset

	// Canvas 当前输出图像的宽高，单调不减
	Canvas() (width, height uint32)

	Grid() TileGrid

	// Clone 深拷贝。在拷贝上 Place 失败或者后续校验失败时丢弃拷贝即可，原网格不受影响
	Clone() ILayoutPolicy
}

// GreedyLayout 先往第一列中往下放，放不下时从第一列的高度确定行数，之后的tile按列依次填满
//
// 第一列的高度未超过 RowHeightThreshold 时继续往下放，超过后开始新的列，也即前两个tile的高度之和超过阈值时，第三个tile放到第二列。
// 单个tile的高度就超过 RowHeightThreshold 时，第一列的高度上限为 GridHeightThreshold 。
//
// 第一列确定后，每行的高度固定，每列的宽度由该列第一个tile确定，不符合的tile返回 base.ErrTileMergeIrregularGrid
type GreedyLayout struct {
	columnWidths []uint32
	rowHeights   []uint32
	numTiles     int

	// 第一列结束后为第一列的tile个数，也即行数
	tilesPerColumn    int
	firstColumnClosed bool

	width  uint32
	height uint32
}

var _ ILayoutPolicy = &GreedyLayout{}

func NewGreedyLayout() *GreedyLayout {
	return &GreedyLayout{}
}

func (l *GreedyLayout) Place(geo TileGeometry) (Placement, error) {
	k := l.numTiles
	if geo.Width == 0 || geo.Height == 0 {
		return Placement{}, fmt.Errorf("%w. empty geometry, idx=%d, size=%dx%d", base.ErrTileMergeIrregularGrid, k, geo.Width, geo.Height)
	}

	if !l.firstColumnClosed {
		if l.extendFirstColumn(geo) {
			if k > 0 {
				if geo.Width != l.columnWidths[0] {
					return Placement{}, base.NewErrTileMergeIrregularGrid(k, geo.Width, geo.Height, l.columnWidths[0], geo.Height)
				}
			} else {
				l.columnWidths = append(l.columnWidths, geo.Width)
				l.width = geo.Width
			}
			l.rowHeights = append(l.rowHeights, geo.Height)
			l.height += geo.Height
			l.tilesPerColumn++
			l.numTiles++
			return Placement{Index: k, Row: k, Col: 0}, nil
		}
		l.firstColumnClosed = true
	}

	row := k % l.tilesPerColumn
	col := k / l.tilesPerColumn
	if geo.Height != l.rowHeights[row] {
		expectedWidth := geo.Width
		if row != 0 {
			expectedWidth = l.columnWidths[col]
		}
		return Placement{}, base.NewErrTileMergeIrregularGrid(k, geo.Width, geo.Height, expectedWidth, l.rowHeights[row])
	}
	if row == 0 {
		l.columnWidths = append(l.columnWidths, geo.Width)
		l.width += geo.Width
	} else if geo.Width != l.columnWidths[col] {
		return Placement{}, base.NewErrTileMergeIrregularGrid(k, geo.Width, geo.Height, l.columnWidths[col], l.rowHeights[row])
	}
	l.numTiles++
	return Placement{Index: k, Row: row, Col: col}, nil
}

func (l *GreedyLayout) extendFirstColumn(geo TileGeometry) bool {
	if l.height <= RowHeightThreshold {
		return true
	}
	// 大tile按行高阈值永远放不下第二个
	return geo.Height > RowHeightThreshold && l.height+geo.Height <= GridHeightThreshold
}

// Offset address = 上方所有行的CTU行数 * 图像宽的CTU个数 + 左边所有列的CTU列数
func (l *GreedyLayout) Offset(p Placement) TileOffset {
	var ret TileOffset
	var sumHeightCtus, sumWidthCtus uint32
	for i := 0; i < p.Row; i++ {
		ret.Y += l.rowHeights[i]
		sumHeightCtus += ctus(l.rowHeights[i])
	}
	for j := 0; j < p.Col; j++ {
		ret.X += l.columnWidths[j]
		sumWidthCtus += ctus(l.columnWidths[j])
	}
	ret.Address = sumHeightCtus*ctus(l.width) + sumWidthCtus
	return ret
}

func (l *GreedyLayout) Canvas() (width, height uint32) {
	return l.width, l.height
}

func (l *GreedyLayout) Grid() TileGrid {
	g := TileGrid{
		ColumnWidths: make([]uint32, len(l.columnWidths)),
		RowHeights:   make([]uint32, len(l.rowHeights)),
	}
	copy(g.ColumnWidths, l.columnWidths)
	copy(g.RowHeights, l.rowHeights)
	return g
}

func (l *GreedyLayout) Clone() ILayoutPolicy {
	ret := *l
	ret.columnWidths = append([]uint32(nil), l.columnWidths...)
	ret.rowHeights = append([]uint32(nil), l.rowHeights...)
	return &ret
}
