// Package ratelimit paces requests to the image search provider.
//
// New(perMinute) returns a TokenBucket that refills its full capacity once per
// minute, or Unlimited when pacing is disabled. Wait honours context
// cancellation so an interrupted run does not sit on a refill timer.
package ratelimit
