// Package groupme is a client for the GroupMe v3 REST API.
//
// The client lists groups, fetches a single group, pages through a group's
// message history one page per call, and likes or unlikes messages. Every
// request carries the access token as a "token" query parameter; nothing is
// sent in a request body.
//
// # Pagination
//
// GetMessagesAfter and GetMessagesBefore differ only in the cursor they send,
// but the server orders the two pages differently:
//
//   - after_id pages are oldest-first
//   - before_id pages are newest-first
//
// The client returns pages exactly as received. In both directions the last
// element of a page is the cursor for the next call, and a page shorter than
// domain.MaxMessages means the walk is over. The client never loops; see
// internal/history for walk helpers.
//
// # Errors
//
// Failures are returned as *MalformedRequestError, *TransportError or
// *DecodeError and match ErrMalformedRequest, ErrTransport and ErrDecode with
// errors.Is. The client does not retry and does not log.
//
// Like and unlike report a LikeResult. LikeResult.OK is true whenever the
// transport produced a response, whatever its status; use
// LikeResult.Confirmed to also require a 2xx status.
package groupme
