// Package identifier issues human readable sequence identifiers of the form
// PREFIX-BUCKET-0001, such as INS-ACM-2024-0001 or CLM-202403-0007.
//
// The count based CounterStore derives the next sequence from the number of
// rows already persisted in the bucket. Two concurrent creations in the same
// bucket can therefore compute the same sequence. Allocate absorbs that race
// by retrying the insert on a duplicate key a bounded number of times; the
// redis CounterStore removes it by incrementing atomically. Nothing is
// reserved: an identifier exists only once the owning row is stored.
package identifier
