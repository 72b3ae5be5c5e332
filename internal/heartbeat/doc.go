// Package heartbeat provides the failure detector run between the two
// traders of a primary/backup pair. A send loop probes the partner every
// interval and an independent timeout loop checks that an acknowledgement
// arrived since its previous tick. Either a failed probe or a silent
// timeout window declares the partner failed, exactly once.
package heartbeat
