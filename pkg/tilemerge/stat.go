// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package tilemerge

// Stat 合并会话的统计，计数从会话创建开始累加
type Stat struct {
	UniqueKey    string
	NumSources   int
	CanvasWidth  uint32
	CanvasHeight uint32

	AccessUnits       uint64 // 输出的access unit个数
	SlicesRewritten   uint64
	MisalignedHeaders uint64 // 改写时发现byte_alignment()不对的slice个数
	DroppedNalus      uint64 // 没有转发的非slice nalu，包括带内的参数集
	DroppedPackets    uint64 // 没有payload的输入包
	RewriteErrors     uint64 // 解析或改写失败而被丢弃的slice个数
	ConfigPublishes   uint64 // OnDecoderConfig 的回调次数
}
