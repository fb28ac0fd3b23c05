// Package audit buffers audit events and delivers them to a sink off the
// request path.
//
// Sinks provided here: [NoOpSink], [ChannelSink], [JSONWriterSink] and
// [SlogSink]. The [Dispatcher] owns buffering only; which events are emitted
// is decided by the engine.
package audit
