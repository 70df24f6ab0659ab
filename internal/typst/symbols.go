package typst

import (
	"regexp"
	"sort"
)

// commandTable maps bare LaTeX math command names (without the backslash) to
// their Typst math equivalents. Commands that take braced arguments live in
// wrapperRules instead.
var commandTable = map[string]string{
	// Greek, lower case
	"alpha": "alpha", "beta": "beta", "gamma": "gamma", "delta": "delta",
	"epsilon": "epsilon", "varepsilon": "epsilon.alt",
	"zeta": "zeta", "eta": "eta",
	"theta": "theta", "vartheta": "theta.alt",
	"iota": "iota", "kappa": "kappa", "lambda": "lambda", "mu": "mu",
	"nu": "nu", "xi": "xi", "omicron": "omicron",
	"pi": "pi", "varpi": "pi.alt",
	"rho": "rho", "varrho": "rho.alt",
	"sigma": "sigma", "varsigma": "sigma.alt",
	"tau": "tau", "upsilon": "upsilon",
	"phi": "phi", "varphi": "phi.alt",
	"chi": "chi", "psi": "psi", "omega": "omega",

	// Greek, upper case
	"Gamma": "Gamma", "Delta": "Delta", "Theta": "Theta", "Lambda": "Lambda",
	"Xi": "Xi", "Pi": "Pi", "Sigma": "Sigma", "Upsilon": "Upsilon",
	"Phi": "Phi", "Psi": "Psi", "Omega": "Omega",

	// Operators and relations
	"times": "times", "cdot": "dot.op", "div": "div", "ast": "ast",
	"pm": "plus.minus", "mp": "minus.plus",
	"leq": "<=", "le": "<=", "geq": ">=", "ge": ">=",
	"neq": "!=", "ne": "!=",
	"approx": "approx", "equiv": "equiv",
	"sim": "tilde.op", "simeq": "tilde.eq", "cong": "tilde.equiv",
	"ll": "lt.double", "gg": "gt.double",
	"infty": "infinity", "propto": "prop",
	"therefore": "therefore", "because": "because",
	"forall": "forall", "exists": "exists", "neg": "not", "lnot": "not",
	"land": "and", "wedge": "and", "lor": "or", "vee": "or",
	"in": "in", "notin": "in.not", "ni": "in.rev",
	"subset": "subset", "supset": "supset",
	"subseteq": "subset.eq", "supseteq": "supset.eq",
	"cup": "union", "cap": "sect", "setminus": "without",
	"emptyset": "nothing", "varnothing": "nothing",
	"oplus": "plus.circle", "otimes": "times.circle",
	"perp": "perp", "parallel": "parallel", "mid": "divides",
	"angle": "angle", "triangle": "triangle.t",
	"prime": "prime", "hbar": "planck.reduce", "ell": "ell",

	// Dots
	"ldots": "dots", "dots": "dots", "cdots": "dots.c",
	"vdots": "dots.v", "ddots": "dots.down",

	// Named functions
	"sin": "sin", "cos": "cos", "tan": "tan", "cot": "cot", "sec": "sec", "csc": "csc",
	"arcsin": "arcsin", "arccos": "arccos", "arctan": "arctan",
	"sinh": "sinh", "cosh": "cosh", "tanh": "tanh",
	"ln": "ln", "log": "log", "exp": "exp",
	"max": "max", "min": "min", "lim": "lim", "sup": "sup", "inf": "inf",
	"det": "det", "gcd": "gcd", "dim": "dim", "ker": "ker", "hom": "hom", "deg": "deg",

	// Big operators and calculus
	"sum": "sum", "prod": "product",
	"int": "integral", "oint": "integral.cont",
	"iint": "integral.double", "iiint": "integral.triple",
	"partial": "diff", "nabla": "nabla",

	// Arrows and implications
	"iff": "<==>", "implies": "==>", "impliedby": "<==",
	"rightarrow": "->", "leftarrow": "<-", "leftrightarrow": "<->",
	"Rightarrow": "=>", "Leftarrow": "arrow.l.double", "Leftrightarrow": "<=>",
	"longrightarrow": "-->", "longleftarrow": "<--",
	"uparrow": "arrow.t", "downarrow": "arrow.b",
	"rightleftharpoons": "harpoons.rltb",
	"to": "->", "gets": "<-", "mapsto": "|->",

	// Spacing
	"quad": "quad", "qquad": "wide",

	// Degree / standard state
	"circ": "degree", "degree": "degree",
}

// delimiterSizing lists commands that only resize the following delimiter.
// They are dropped together with any whitespace after them.
var delimiterSizing = map[string]bool{
	"left": true, "right": true,
	"big": true, "Big": true, "bigg": true, "Bigg": true,
	"bigl": true, "bigr": true, "Bigl": true, "Bigr": true,
	"biggl": true, "biggr": true, "Biggl": true, "Biggr": true,
	"displaystyle": true, "textstyle": true, "limits": true, "nolimits": true,
}

// symbolEscapes maps a backslash followed by a single non-letter character.
// Unlisted escapes are kept verbatim, since Typst reads them as escaped
// literals as well.
var symbolEscapes = map[byte]string{
	'\\': ` \ `,
	',':  "thin",
	';':  "med",
	':':  "med",
	' ':  "space",
	'!':  "",
	'{':  "{",
	'}':  "}",
	'%':  "%",
	'|':  "bar.v.double",
}

// wrapperFuncs are the Typst function names produced by argument-taking
// conversions (fractions, roots, accents, fonts, environments).
var wrapperFuncs = []string{
	"frac", "binom", "sqrt", "root",
	"arrow", "hat", "overline", "underline", "tilde", "dot", "dot.double",
	"bb", "cal", "upright", "bold", "mat", "cases",
}

// structuralIdents are keywords emitted inside generated calls, plus names
// Typst math defines that are commonly written without a backslash.
var structuralIdents = []string{
	"delim", "none", "zws", "thin", "med", "space", "lr", "attach",
}

var identRunRegex = regexp.MustCompile(`[a-zA-Z][a-zA-Z.]*`)

// knownIdents is the spacer allow-list. It is derived from every identifier
// the translator can emit so the two never drift apart.
var knownIdents = buildKnownIdents()

func buildKnownIdents() map[string]bool {
	known := make(map[string]bool, len(commandTable)+len(wrapperFuncs)+len(structuralIdents))
	add := func(s string) {
		for _, run := range identRunRegex.FindAllString(s, -1) {
			known[run] = true
		}
	}
	for _, v := range commandTable {
		add(v)
	}
	for _, v := range symbolEscapes {
		add(v)
	}
	for _, v := range wrapperFuncs {
		add(v)
	}
	for _, v := range structuralIdents {
		add(v)
	}
	return known
}

// KnownIdentifiers returns the sorted spacer allow-list.
func KnownIdentifiers() []string {
	out := make([]string, 0, len(knownIdents))
	for k := range knownIdents {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
