// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

import "fmt"

type AvPacketPt int

const (
	AvPacketPtUnknown AvPacketPt = -1
	AvPacketPtAvc     AvPacketPt = 96
	AvPacketPtHevc    AvPacketPt = 98
)

// AvPacket
//
// 长度前缀格式的hevc数据，长度字段的字节数由所属流的decoder configuration record决定
type AvPacket struct {
	PayloadType AvPacketPt
	Timestamp   int64 // 毫秒，为了兼容老接口保留，合并时使用Dts
	Dts         int64 // 90000时钟
	Pts         int64
	Payload     []byte
}

func (a AvPacketPt) ReadableString() string {
	switch a {
	case AvPacketPtUnknown:
		return "unknown"
	case AvPacketPtAvc:
		return "avc"
	case AvPacketPtHevc:
		return "hevc"
	}
	return ""
}

// IsEmpty 没有payload的包在合并时直接丢弃
func (packet *AvPacket) IsEmpty() bool {
	return len(packet.Payload) == 0
}

func (packet *AvPacket) DebugString() string {
	return fmt.Sprintf("[%p] type=%s, timestamp=%d, dts=%d, pts=%d, len=%d",
		packet, packet.PayloadType.ReadableString(), packet.Timestamp, packet.Dts, packet.Pts, len(packet.Payload))
}
