package stats

import "math"

// TestResult reports one hypothesis test.
type TestResult struct {
	Statistic float64 `json:"statistic"`
	DF        float64 `json:"df"`
	PValue    float64 `json:"p_value"`
}

// WelchT compares two group means without assuming equal variances.
func WelchT(x, y []float64) TestResult {
	nx, ny := float64(len(x)), float64(len(y))
	if nx < 2 || ny < 2 {
		return TestResult{PValue: 1}
	}
	mx, my := Mean(x), Mean(y)
	vx, vy := SD(x)*SD(x), SD(y)*SD(y)

	se := math.Sqrt(vx/nx + vy/ny)
	if se == 0 {
		return TestResult{PValue: 1}
	}
	t := (mx - my) / se

	// Welch-Satterthwaite degrees of freedom.
	num := (vx/nx + vy/ny) * (vx/nx + vy/ny)
	den := (vx*vx)/(nx*nx*(nx-1)) + (vy*vy)/(ny*ny*(ny-1))
	df := num / den

	return TestResult{Statistic: t, DF: df, PValue: studentTPValue(math.Abs(t), df)}
}

// ChiSquare2x2 tests independence in a 2x2 table laid out as
// [exposed/event, exposed/no-event, unexposed/event, unexposed/no-event].
func ChiSquare2x2(a, b, c, d int) TestResult {
	n := float64(a + b + c + d)
	if n == 0 {
		return TestResult{PValue: 1}
	}
	fa, fb, fc, fd := float64(a), float64(b), float64(c), float64(d)
	row1, row2 := fa+fb, fc+fd
	col1, col2 := fa+fc, fb+fd
	if row1 == 0 || row2 == 0 || col1 == 0 || col2 == 0 {
		return TestResult{PValue: 1}
	}
	chi2 := n * math.Pow(fa*fd-fb*fc, 2) / (row1 * row2 * col1 * col2)
	return TestResult{Statistic: chi2, DF: 1, PValue: chiSquarePValue(chi2, 1)}
}

// studentTPValue is the two-sided p-value for |t| with df degrees of
// freedom, via the regularized incomplete beta function.
func studentTPValue(t, df float64) float64 {
	if df <= 0 {
		return 1
	}
	x := df / (df + t*t)
	return regIncompleteBeta(df/2, 0.5, x)
}

// chiSquarePValue is the upper tail of the chi-square distribution.
func chiSquarePValue(chi2, df float64) float64 {
	if chi2 <= 0 {
		return 1
	}
	return regUpperGamma(df/2, chi2/2)
}

// regIncompleteBeta computes I_x(a, b) with the standard continued
// fraction expansion.
func regIncompleteBeta(a, b, x float64) float64 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}
	lbeta := lgamma(a) + lgamma(b) - lgamma(a+b)
	front := math.Exp(a*math.Log(x)+b*math.Log(1-x)-lbeta) / a

	if x > (a+1)/(a+b+2) {
		return 1 - regIncompleteBeta(b, a, 1-x)
	}

	// Lentz's algorithm.
	const eps = 1e-12
	f, c, d := 1.0, 1.0, 0.0
	for i := 0; i <= 200; i++ {
		m := i / 2
		var numerator float64
		switch {
		case i == 0:
			numerator = 1
		case i%2 == 0:
			numerator = float64(m) * (b - float64(m)) * x / ((a + 2*float64(m) - 1) * (a + 2*float64(m)))
		default:
			numerator = -(a + float64(m)) * (a + b + float64(m)) * x / ((a + 2*float64(m)) * (a + 2*float64(m) + 1))
		}
		d = 1 + numerator*d
		if math.Abs(d) < 1e-30 {
			d = 1e-30
		}
		d = 1 / d
		c = 1 + numerator/c
		if math.Abs(c) < 1e-30 {
			c = 1e-30
		}
		f *= c * d
		if math.Abs(1-c*d) < eps {
			break
		}
	}
	return front * (f - 1)
}

// regUpperGamma computes Q(a, x) = 1 - P(a, x).
func regUpperGamma(a, x float64) float64 {
	if x < a+1 {
		return 1 - lowerGammaSeries(a, x)
	}
	return upperGammaCF(a, x)
}

func lowerGammaSeries(a, x float64) float64 {
	if x <= 0 {
		return 0
	}
	sum := 1.0 / a
	term := sum
	ap := a
	for i := 0; i < 500; i++ {
		ap++
		term *= x / ap
		sum += term
		if math.Abs(term) < math.Abs(sum)*1e-14 {
			break
		}
	}
	return sum * math.Exp(-x+a*math.Log(x)-lgamma(a))
}

func upperGammaCF(a, x float64) float64 {
	b := x + 1 - a
	c := 1e300
	d := 1 / b
	h := d
	for i := 1; i < 500; i++ {
		an := -float64(i) * (float64(i) - a)
		b += 2
		d = an*d + b
		if math.Abs(d) < 1e-30 {
			d = 1e-30
		}
		c = b + an/c
		if math.Abs(c) < 1e-30 {
			c = 1e-30
		}
		d = 1 / d
		del := d * c
		h *= del
		if math.Abs(del-1) < 1e-14 {
			break
		}
	}
	return math.Exp(-x+a*math.Log(x)-lgamma(a)) * h
}

func lgamma(x float64) float64 {
	v, _ := math.Lgamma(x)
	return v
}
