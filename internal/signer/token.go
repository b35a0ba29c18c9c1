// Package signer computes the per-request integrity token (the m/s/t header
// triple) the remote API verifies on every authenticated call. The algorithm
// mirrors the mini-program client byte for byte; any deviation changes the
// digest and the server rejects the request.
package signer

import (
	"crypto/md5"
	"encoding/hex"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Token is the m/t/s triple attached to request headers. It embeds a random
// nonce and the current timestamp, so it must be recomputed per request and
// never cached.
type Token struct {
	M string // hex MD5 digest
	T string // unix seconds, decimal
	S string // underscore-joined draw indices
}

// alphabet is the fixed 62-character permutation table the draw indices map
// through.
var alphabet = [62]string{
	"5", "b", "f", "A", "J", "Q", "g", "a", "l", "p", "s", "q", "H", "4",
	"L", "Q", "g", "1", "6", "Q", "Z", "v", "w", "b", "c", "e", "2", "2",
	"m", "l", "E", "g", "G", "H", "I", "r", "o", "s", "d", "5", "7", "x",
	"t", "J", "S", "T", "F", "v", "w", "4", "8", "9", "0", "K", "E", "3",
	"4", "0", "m", "r", "i", "n",
}

// excludedNames lists the free-text and binary field names whose values never
// enter the digest. Kept verbatim, duplicate included.
var excludedNames = []string{
	"content", "deviceName", "keyWord", "blogBody", "blogTitle", "getType",
	"responsibilities", "street", "text", "reason", "searchvalue", "key",
	"answers", "leaveReason", "personRemark", "selfAppraisal", "imgUrl",
	"wxname", "deviceId", "avatarTempPath", "file", "model", "brand", "system",
	"platform", "code", "openId", "unionid", "clockDeviceToken", "clockDevice",
	"address", "name", "enterpriseEmail", "practiceTarget", "guardianName",
	"guardianPhone", "practiceDays", "linkman", "enterpriseName",
	"companyIntroduction", "accommodationStreet", "accommodationLongitude",
	"accommodationLatitude", "internshipDestination", "specialStatement",
	"enterpriseStreet", "insuranceName", "insuranceFinancing", "policyNumber",
	"overtimeRemark", "riskStatement", "specialStatement",
}

var excludedSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(excludedNames))
	for _, n := range excludedNames {
		m[n] = struct{}{}
	}
	return m
}()

// punctuation is the ASCII plus full-width character set that disqualifies a
// field value from the digest entirely.
const punctuation = "`~!@#$%^&*()+=|{}':;',[].<>/?~！@#￥%……&*（）——+|{}【】‘；：”“’。，、？"

// Signer draws the per-request nonce. The clock and the draw source are
// injectable so the digest can be pinned in tests.
type Signer struct {
	now  func() time.Time
	intn func(n int) int
}

func New() *Signer {
	return &Signer{now: time.Now, intn: rand.Intn}
}

// Sign computes the token over the given field set. Fields are consulted by
// sorted key; field names never enter the digest, only surviving values do.
func (s *Signer) Sign(fields map[string]string) Token {
	return signAt(fields, s.now().Unix(), s.drawIndices(20))
}

// drawIndices picks k of the index strings "0".."61" without replacement,
// preserving draw order.
func (s *Signer) drawIndices(k int) []string {
	pool := make([]string, 62)
	for i := range pool {
		pool[i] = strconv.Itoa(i)
	}
	for i := 0; i < k; i++ {
		j := i + s.intn(62-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k]
}

func signAt(fields map[string]string, ts int64, indices []string) Token {
	var g strings.Builder
	for _, ix := range indices {
		n, _ := strconv.Atoi(ix)
		g.WriteString(alphabet[n])
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var d strings.Builder
	for _, k := range keys {
		if _, skip := excludedSet[k]; skip {
			continue
		}
		v := fields[k]
		if strings.ContainsAny(v, punctuation) {
			continue
		}
		d.WriteString(v)
	}
	d.WriteString(strconv.FormatInt(ts, 10))
	d.WriteString(g.String())

	encoded := quote(clean(d.String()))
	sum := md5.Sum([]byte(encoded))

	return Token{
		M: hex.EncodeToString(sum[:]),
		T: strconv.FormatInt(ts, 10),
		S: strings.Join(indices, "_"),
	}
}

// clean strips the characters the upstream signer removes before encoding.
// The last two patterns are literal backslash-escape strings, not character
// ranges: the upstream client strips those exact literals (which can never
// occur once "-" is gone), so they are reproduced here as written to keep
// digests in sync.
func clean(s string) string {
	for _, cut := range []string{
		" ", "\n", "\r", "<", ">", "&", "-",
		`\uD83C[\uDF00-\uDFFF]`,
		`\uD83D[\uDC00-\uDE4F]`,
	} {
		s = strings.ReplaceAll(s, cut, "")
	}
	return s
}

const quoteSafe = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_.-~/"

// quote percent-encodes the UTF-8 bytes of s, keeping unreserved characters
// and "/" as-is (the encoding the upstream signer applies before hashing;
// note it differs from net/url's query escaping).
func quote(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if strings.IndexByte(quoteSafe, c) >= 0 {
			b.WriteByte(c)
		} else {
			b.WriteByte('%')
			b.WriteString(upperHex(c))
		}
	}
	return b.String()
}

func upperHex(c byte) string {
	const digits = "0123456789ABCDEF"
	return string([]byte{digits[c>>4], digits[c&0x0f]})
}
