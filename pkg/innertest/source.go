// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package innertest

import "github.com/q191201771/tilemerge/pkg/base"

// PacketSource 内存中的输入流，所有包消费完并且调用过 SetEos 之后才算结束
type PacketSource struct {
	pkts []base.AvPacket
	eos  bool
}

func NewPacketSource(pkts ...base.AvPacket) *PacketSource {
	return &PacketSource{pkts: pkts}
}

func (s *PacketSource) Push(pkt base.AvPacket) {
	s.pkts = append(s.pkts, pkt)
}

func (s *PacketSource) SetEos() {
	s.eos = true
}

func (s *PacketSource) PeekPacket() *base.AvPacket {
	if len(s.pkts) == 0 {
		return nil
	}
	return &s.pkts[0]
}

func (s *PacketSource) DropPacket() {
	if len(s.pkts) != 0 {
		s.pkts = s.pkts[1:]
	}
}

func (s *PacketSource) IsEos() bool {
	return s.eos && len(s.pkts) == 0
}

func (s *PacketSource) Len() int {
	return len(s.pkts)
}
