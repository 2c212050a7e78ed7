package render

import "strings"

// MistSpriteSVG is the 1200x420 ink-wash mist sprite: five blurred white
// ellipses over a soft base band.
const MistSpriteSVG = `
<svg xmlns="http://www.w3.org/2000/svg" width="1200" height="420" viewBox="0 0 1200 420">
  <defs>
    <filter id="b" x="-20%" y="-50%" width="140%" height="200%">
      <feGaussianBlur stdDeviation="22" />
    </filter>
  </defs>
  <g filter="url(#b)" opacity="0.95">
    <ellipse cx="120" cy="260" rx="220" ry="90" fill="#ffffff" fill-opacity="0.55"/>
    <ellipse cx="330" cy="240" rx="260" ry="105" fill="#ffffff" fill-opacity="0.50"/>
    <ellipse cx="560" cy="270" rx="320" ry="120" fill="#ffffff" fill-opacity="0.44"/>
    <ellipse cx="820" cy="245" rx="300" ry="110" fill="#ffffff" fill-opacity="0.46"/>
    <ellipse cx="1040" cy="275" rx="260" ry="100" fill="#ffffff" fill-opacity="0.50"/>
    <rect x="0" y="260" width="1200" height="160" fill="#ffffff" fill-opacity="0.24"/>
  </g>
</svg>
`

const svgDataPrefix = "data:image/svg+xml;utf8,"

// MistSpriteDataURI returns the sprite as a data URI usable in CSS url().
func MistSpriteDataURI() string {
	return svgDataPrefix + EncodeURIComponent(MistSpriteSVG)
}

// EncodeURIComponent percent-encodes s the way browsers' encodeURIComponent
// does: everything except A-Z a-z 0-9 and -_.!~*'() is escaped as UTF-8 bytes.
// url.QueryEscape and url.PathEscape both use different unreserved sets.
func EncodeURIComponent(s string) string {
	const hex = "0123456789ABCDEF"

	var b strings.Builder
	b.Grow(len(s) * 3)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if uriUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func uriUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
