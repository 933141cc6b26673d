package tablecall

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// visitors holds one token bucket per client IP. Idle buckets expire.
type visitors struct {
	perMinute int
	mu        sync.Mutex
	limiters  *cache.Cache
}

func newVisitors(perMinute int) *visitors {
	if perMinute <= 0 {
		perMinute = 6
	}
	return &visitors{
		perMinute: perMinute,
		limiters:  cache.New(10*time.Minute, 10*time.Minute),
	}
}

func (v *visitors) get(ip string) *rate.Limiter {
	v.mu.Lock()
	defer v.mu.Unlock()

	if l, ok := v.limiters.Get(ip); ok {
		v.limiters.SetDefault(ip, l)
		return l.(*rate.Limiter)
	}
	l := rate.NewLimiter(rate.Every(time.Minute/time.Duration(v.perMinute)), v.perMinute)
	v.limiters.SetDefault(ip, l)
	return l
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (v *visitors) limit(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if !v.get(clientIP(r)).Allow() {
			writeError(w, http.StatusTooManyRequests, "Слишком много вызовов, попробуйте позже")
			return
		}
		next(w, r, ps)
	}
}
