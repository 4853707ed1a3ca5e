// Package rollauth signs and verifies dice results delivered as structured
// events instead of rendered chat HTML.
package rollauth

import (
	"errors"
	"fmt"
	"time"

	"survivor/internal/domain"

	"github.com/form3tech-oss/jwt-go"
	"github.com/google/uuid"
)

const DefaultTTL = 5 * time.Minute

var (
	ErrIncompleteConfig = errors.New("roll token config is incomplete")
	ErrInvalidToken     = errors.New("invalid roll token")
	ErrMalformedEvent   = errors.New("malformed roll event")
)

// Event is one dice result for the game in Room.
type Event struct {
	Room    string
	Message domain.RollMessage
}

// Service mints and checks HS256 roll-event tokens.
type Service struct {
	secret string
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewService(secret, issuer string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{secret: secret, issuer: issuer, ttl: ttl, now: time.Now}
}

// Sign encodes ev as a signed token.
func (s *Service) Sign(ev Event) (string, error) {
	if s == nil || s.secret == "" || s.issuer == "" {
		return "", ErrIncompleteConfig
	}
	if ev.Room == "" {
		return "", fmt.Errorf("%w: room is required", ErrMalformedEvent)
	}

	now := s.now()
	claims := jwt.MapClaims{
		"iss":  s.issuer,
		"iat":  now.Unix(),
		"exp":  now.Add(s.ttl).Unix(),
		"jti":  uuid.NewString(),
		"room": ev.Room,
		"kind": string(ev.Message.Kind),
	}
	switch ev.Message.Kind {
	case domain.RollSingle:
		claims["value"] = ev.Message.Value
	case domain.RollMulti:
		claims["values"] = ev.Message.Values
	case domain.RollPick:
		claims["pick"] = ev.Message.Pick
	default:
		return "", fmt.Errorf("%w: unknown kind %q", ErrMalformedEvent, ev.Message.Kind)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secret))
}

// Verify checks the signature, expiry and issuer of tokenString and decodes
// the event it carries.
func (s *Service) Verify(tokenString string) (Event, error) {
	if s == nil || s.secret == "" || s.issuer == "" {
		return Event{}, ErrIncompleteConfig
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secret), nil
	})
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Event{}, ErrInvalidToken
	}
	if !claims.VerifyIssuer(s.issuer, true) {
		return Event{}, fmt.Errorf("%w: issuer mismatch", ErrInvalidToken)
	}
	if !claims.VerifyExpiresAt(s.now().Unix(), true) {
		return Event{}, fmt.Errorf("%w: token expired", ErrInvalidToken)
	}
	return decode(claims)
}

func decode(claims jwt.MapClaims) (Event, error) {
	room, _ := claims["room"].(string)
	kind, _ := claims["kind"].(string)
	if room == "" {
		return Event{}, fmt.Errorf("%w: missing room", ErrMalformedEvent)
	}

	ev := Event{Room: room, Message: domain.RollMessage{Kind: domain.RollKind(kind)}}
	switch ev.Message.Kind {
	case domain.RollSingle:
		v, ok := claims["value"].(float64)
		if !ok {
			return Event{}, fmt.Errorf("%w: missing value", ErrMalformedEvent)
		}
		ev.Message.Value = int(v)
	case domain.RollMulti:
		raw, ok := claims["values"].([]interface{})
		if !ok || len(raw) == 0 {
			return Event{}, fmt.Errorf("%w: missing values", ErrMalformedEvent)
		}
		for _, r := range raw {
			v, ok := r.(float64)
			if !ok {
				return Event{}, fmt.Errorf("%w: non-numeric value %v", ErrMalformedEvent, r)
			}
			ev.Message.Values = append(ev.Message.Values, int(v))
		}
	case domain.RollPick:
		pick, ok := claims["pick"].(string)
		if !ok || pick == "" {
			return Event{}, fmt.Errorf("%w: missing pick", ErrMalformedEvent)
		}
		ev.Message.Pick = pick
	default:
		return Event{}, fmt.Errorf("%w: unknown kind %q", ErrMalformedEvent, kind)
	}
	return ev, nil
}
