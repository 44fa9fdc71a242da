// Package health answers "is this instance serviceable" by combining
// independent dependency probes into one verdict. Probes run concurrently
// with a bounded per-probe timeout so the health endpoint can never hang a
// dependent load balancer, and every probe failure is recovered locally into
// a "down" status rather than propagated as a process failure.
package health
