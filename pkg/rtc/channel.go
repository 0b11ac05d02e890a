package rtc

import (
	"github.com/pion/webrtc/v4"
)

// dataChannel adapts a webrtc.DataChannel to datachannel.Channel.
type dataChannel struct {
	dc *webrtc.DataChannel
}

func newDataChannel(dc *webrtc.DataChannel) *dataChannel {
	return &dataChannel{dc: dc}
}

func (c *dataChannel) Label() string {
	return c.dc.Label()
}

func (c *dataChannel) Ready() bool {
	return c.dc.ReadyState() == webrtc.DataChannelStateOpen
}

// Send transmits the payload as a text message, as the gateway's
// data channel protocols are JSON.
func (c *dataChannel) Send(data []byte) error {
	return c.dc.SendText(string(data))
}

func (c *dataChannel) OnOpen(f func()) {
	c.dc.OnOpen(f)
}

func (c *dataChannel) OnClose(f func()) {
	c.dc.OnClose(f)
}

func (c *dataChannel) OnMessage(f func(data []byte, binary bool)) {
	c.dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		f(msg.Data, !msg.IsString)
	})
}
