package videoframe_test

import (
	"testing"

	"github.com/matryer/is"
	"github.com/tauraamui/mvflow/pkg/video/videoframe"
)

func TestPacketAdvanceShrinksRemaining(t *testing.T) {
	is := is.New(t)
	pkt := videoframe.Packet{Data: []byte{1, 2, 3, 4, 5}}

	pkt.Advance(2)
	is.Equal(pkt.Remaining(), 3)
	is.Equal(pkt.Data, []byte{3, 4, 5})
}

func TestPacketAdvanceClampsToRemaining(t *testing.T) {
	is := is.New(t)
	pkt := videoframe.Packet{Data: []byte{1, 2, 3}}

	pkt.Advance(1000)
	is.Equal(pkt.Remaining(), 0)

	pkt.Advance(1)
	is.Equal(pkt.Remaining(), 0)
}

func TestPacketAdvanceIgnoresNegative(t *testing.T) {
	is := is.New(t)
	pkt := videoframe.Packet{Data: []byte{1, 2}}

	pkt.Advance(-4)
	is.Equal(pkt.Remaining(), 2)
}

func TestPictureTypeChars(t *testing.T) {
	is := is.New(t)
	is.Equal(videoframe.PictureTypeI.Char(), byte('I'))
	is.Equal(videoframe.PictureTypeP.Char(), byte('P'))
	is.Equal(videoframe.PictureTypeB.Char(), byte('B'))
	is.Equal(videoframe.PictureTypeBI.Char(), byte('b'))
	is.Equal(videoframe.PictureTypeNone.Char(), byte('?'))
	is.Equal(videoframe.PictureType(99).String(), "?")
}
