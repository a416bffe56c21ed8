package irbridge

// NullChannel is the disabled transport. It never opens and moves no data.
type NullChannel struct{}

var _ Channel = (*NullChannel)(nil)

func (c *NullChannel) Open() bool             { return false }
func (c *NullChannel) Close()                 {}
func (c *NullChannel) Write(data []byte) int  { return 0 }
func (c *NullChannel) Read(buf []byte) int    { return 0 }
func (c *NullChannel) IsOpen() bool           { return false }
func (c *NullChannel) IsAvailable() bool      { return false }
func (c *NullChannel) HasDataAvailable() bool { return false }
func (c *NullChannel) Dispose()               {}
func (c *NullChannel) Kind() Kind             { return KindNone }
func (c *NullChannel) Stats() Stats           { return Stats{} }
