// Package enrich generates short titles for conversations the normalizer
// left untitled. It is optional: dex runs fully without it, and every
// failure here is absorbed and counted rather than propagated.
package enrich
