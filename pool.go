package sigma

import "sync"

// Scratch frames start at a size that fits typical Sigma traffic and
// are dropped once they have grown past the largest legal frame.
const (
	scratchFrameSize = 512
	maxScratchFrame  = FrameHeaderLength + DefaultMaxFrame
)

var framePool = sync.Pool{
	New: func() any {
		frame := make([]byte, 0, scratchFrameSize)
		return &frame
	},
}

// acquireFrame returns an empty scratch frame with room reserved for
// the length prefix.
func acquireFrame() *[]byte {
	frame := framePool.Get().(*[]byte)
	*frame = append((*frame)[:0], 0, 0)
	return frame
}

func releaseFrame(frame *[]byte) {
	if cap(*frame) > maxScratchFrame {
		return
	}
	*frame = (*frame)[:0]
	framePool.Put(frame)
}
