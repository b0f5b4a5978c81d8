package generator

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/ncruces/go-strftime"
)

const DefaultDatetimeFormat = "%Y-%m-%d %H:%M:%S"

// runtime es el estado compartido por los generadores de campos de un Generator.
type runtime struct {
	rng   *rand.Rand
	faker *gofakeit.Faker
	now   func() time.Time
}

func newRuntime(seed uint64, now func() time.Time) *runtime {
	return &runtime{
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		faker: gofakeit.New(seed),
		now:   now,
	}
}

// Read permite usar el rng como fuente de uuid.NewRandomFromReader.
func (r *runtime) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(r.rng.Uint32())
	}
	return len(p), nil
}

func (r *runtime) uuid() string {
	id, err := uuid.NewRandomFromReader(r)
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

type valueFunc func(*runtime) any

type fieldFactory func(args []string) (valueFunc, error)

var greetings = []string{"Hello", "Hi", "Hey", "Good morning", "Good afternoon", "Good evening", "Welcome"}

var registry = map[string]fieldFactory{
	"uuid":         noArgs(func(r *runtime) any { return r.uuid() }),
	"uuid4":        noArgs(func(r *runtime) any { return r.uuid() }),
	"name":         noArgs(func(r *runtime) any { return r.faker.Name() }),
	"first_name":   noArgs(func(r *runtime) any { return r.faker.FirstName() }),
	"last_name":    noArgs(func(r *runtime) any { return r.faker.LastName() }),
	"email":        noArgs(func(r *runtime) any { return r.faker.Email() }),
	"phone_number": noArgs(func(r *runtime) any { return r.faker.Phone() }),
	"address":      noArgs(func(r *runtime) any { return r.faker.Street() + ", " + r.faker.City() }),
	"city":         noArgs(func(r *runtime) any { return r.faker.City() }),
	"zipcode":      noArgs(func(r *runtime) any { return r.faker.Zip() }),
	"country":      noArgs(func(r *runtime) any { return r.faker.Country() }),
	"company":      noArgs(func(r *runtime) any { return r.faker.Company() }),
	"user_name":    noArgs(func(r *runtime) any { return r.faker.Username() }),
	"url":          noArgs(func(r *runtime) any { return r.faker.URL() }),
	"ip_address":   noArgs(func(r *runtime) any { return r.faker.IPv4Address() }),
	"text":         noArgs(text),
	"boolean":      noArgs(func(r *runtime) any { return r.faker.Bool() }),
	"timestamp":    noArgs(func(r *runtime) any { return r.now().Unix() }),
	"greeting":     noArgs(func(r *runtime) any { return greetings[r.rng.IntN(len(greetings))] }),
	"datetime":     datetime,
	"intrange":     intRange,
	"price":        price,
	"choice":       choice,
	"constant":     constant,
}

func noArgs(fn valueFunc) fieldFactory {
	return func(args []string) (valueFunc, error) {
		if len(args) > 0 {
			return nil, fmt.Errorf("generator takes no arguments, got %d", len(args))
		}
		return fn, nil
	}
}

func text(r *runtime) any {
	words := make([]string, 8)
	for i := range words {
		words[i] = r.faker.Word()
	}
	words[0] = strings.ToUpper(words[0][:1]) + words[0][1:]
	return strings.Join(words, " ") + "."
}

func datetime(args []string) (valueFunc, error) {
	format := DefaultDatetimeFormat
	if len(args) > 0 {
		format = strings.Join(args, ", ")
	}

	return func(r *runtime) any {
		return strftime.Format(format, r.now())
	}, nil
}

func intRange(args []string) (valueFunc, error) {
	lo, hi, err := intBounds(args)
	if err != nil {
		return nil, err
	}

	// hi-lo en uint64 no desborda aunque el rango cubra todo int64
	span := uint64(hi) - uint64(lo)

	return func(r *runtime) any {
		if span == math.MaxUint64 {
			return int64(r.rng.Uint64())
		}
		return lo + int64(r.rng.Uint64N(span+1))
	}, nil
}

func price(args []string) (valueFunc, error) {
	lo, hi := 0.0, 1000.0
	if len(args) > 0 {
		if len(args) != 2 {
			return nil, fmt.Errorf("price expects (min, max), got %d arguments", len(args))
		}
		var err error
		if lo, err = strconv.ParseFloat(args[0], 64); err != nil {
			return nil, fmt.Errorf("price min %q: %w", args[0], err)
		}
		if hi, err = strconv.ParseFloat(args[1], 64); err != nil {
			return nil, fmt.Errorf("price max %q: %w", args[1], err)
		}
	}
	if hi < lo {
		return nil, fmt.Errorf("price max %v is lower than min %v", hi, lo)
	}

	return func(r *runtime) any {
		return math.Round((lo+r.rng.Float64()*(hi-lo))*100) / 100
	}, nil
}

func choice(args []string) (valueFunc, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("choice needs at least one option")
	}

	options := append([]string(nil), args...)
	return func(r *runtime) any {
		return options[r.rng.IntN(len(options))]
	}, nil
}

func constant(args []string) (valueFunc, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("constant expects one argument, got %d", len(args))
	}

	value := args[0]
	return func(*runtime) any { return value }, nil
}

func intBounds(args []string) (int64, int64, error) {
	if len(args) != 2 {
		return 0, 0, fmt.Errorf("intrange expects (min, max), got %d arguments", len(args))
	}

	lo, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("intrange min %q: %w", args[0], err)
	}
	hi, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("intrange max %q: %w", args[1], err)
	}
	if hi < lo {
		return 0, 0, fmt.Errorf("intrange max %d is lower than min %d", hi, lo)
	}

	return lo, hi, nil
}
