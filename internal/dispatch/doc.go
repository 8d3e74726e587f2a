// Package dispatch delivers due queue items.
//
// Each tick takes one wall-clock snapshot, selects every item whose send_time
// is at or before it, and for each item in send_time order makes exactly one
// send attempt and then deletes the item, whatever the outcome. There is no
// retry and no failed state: a failed send is logged, counted and dropped.
//
// A crash between a send and its delete can repeat that send after restart.
package dispatch
