// Package market holds the vocabulary shared by every component of the
// trading post: the product catalogue, peer roles, trade requests, cache
// update messages, reply statuses and sentinel errors.
package market
