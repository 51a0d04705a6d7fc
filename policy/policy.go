// Package policy assembles the solver's raw solution set into the
// final human- and machine-readable report: semantic redundancy
// removal, alternative ordering (branch-first or size/complexity),
// compact-condition merging, and constant-time branch-guided policy
// derivation. Grounded directly on the back half of the original
// implementation's AbductionSolver (pyabduction/solver.py,
// _semantic_post_filter_solutions through _finalize_nas_result).
package policy

import (
	"regexp"
	"sort"
	"strings"

	"github.com/rseabduce/abduce/corelog"
	"github.com/rseabduce/abduce/oracle"
	"github.com/rseabduce/abduce/stats"
	"github.com/rseabduce/abduce/term"
)

// Policy is one candidate sufficient condition assigned a stable
// display id (P1, P2, ...) in selection order.
type Policy struct {
	ID         string
	Formula    string
	Literals   []string
	Complexity int
}

// PairwiseCompatibility records whether two policies can hold
// simultaneously without contradiction.
type PairwiseCompatibility struct {
	Left, Right        string
	CompatibleWithAnd   bool
	Relation            string
}

// BranchPartition groups the policies that compare the same
// (variable, constant) pair, split by relation.
type BranchPartition struct {
	Variable      string
	PivotConstant string
	LessThan      []string
	Equal         []string
	GreaterThan   []string
	CanMergeToLeq bool
	CanMergeToGeq bool
}

// Semantics is the structured view of how the selected policies
// relate to one another.
type Semantics struct {
	OperatorBetweenPolicies string
	PolicyIDs               []string
	SelectedPolicyID        string
	OrExpression            string
	Policies                []Policy
	PairwiseCompatibility   []PairwiseCompatibility
	BranchPartitions        []BranchPartition
}

// BranchGuidedPolicy is one derived true/false-branch pair for a
// detected branch pivot, each optionally CT-evaluated.
type BranchGuidedPolicy struct {
	Variable          string
	PivotConstant     string
	TrueFormula       string
	TrueMeaning       string
	TrueCT            *oracle.CTResult
	FalseFormula      string
	FalseMeaning      string
	FalseCT           *oracle.CTResult
	RecommendedSplit  bool
}

// CTValidation reports ct-evaluate(selected) against the unconstrained
// baseline.
type CTValidation struct {
	Baseline oracle.CTResult
	Selected oracle.CTResult
}

// SelectionReason documents why the ordering mode was chosen.
type SelectionReason struct {
	Mode      string
	Reason    string
	BranchVar string
	BranchVal string
}

// ResultSummary is the finalized report, the Go counterpart of the
// original's result_summary dict (§4.5/§9).
type ResultSummary struct {
	SelectedPolicy               string
	SelectedPolicyRepresentative string
	PolicyCondition              string
	PolicyConditionUnified       string
	PolicyConditionCompact       string
	Alternatives                 []string
	NASConditionsAll             []string
	CTValidation                 *CTValidation
	PolicySemantics              Semantics
	BranchGuidedPolicies         []BranchGuidedPolicy
	SelectionMode                string
	SelectionReason              SelectionReason
	Stats                        *stats.Stats
}

// Options configures finalization behavior derived from the CLI
// surface (§6): CT mode gates branch-first ordering and the CT
// validation/derivation passes.
type Options struct {
	CTMode         bool
	SelectionMode  string // "" lets Finalize pick a default
}

var relationRe = regexp.MustCompile(`^(.*?)\s(<s|=|<>)\s(.*?)$`)

func isConstToken(tok string) bool {
	matched, _ := regexp.MatchString(`^0x[0-9a-fA-F]+$`, strings.TrimSpace(tok))
	return matched
}

func isMemToken(tok string) bool {
	return strings.HasPrefix(strings.TrimSpace(tok), "@[")
}

type branchAtom struct {
	variable, constant, relation string
}

// extractBranchAtom recognizes "mem OP const" (or its mirror) as a
// simple signed comparison against a constant, returning the
// relation normalized to one of <, =, >.
func extractBranchAtom(lit string) *branchAtom {
	text := strings.TrimSpace(lit)
	if strings.HasPrefix(text, "(") && strings.HasSuffix(text, ")") {
		text = strings.TrimSpace(text[1 : len(text)-1])
	}
	m := relationRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	left, op, right := strings.TrimSpace(m[1]), m[2], strings.TrimSpace(m[3])
	if op == "<>" {
		return nil
	}
	if op == "=" {
		if isConstToken(left) && isMemToken(right) {
			return &branchAtom{right, left, "="}
		}
		if isMemToken(left) && isConstToken(right) {
			return &branchAtom{left, right, "="}
		}
		return nil
	}
	if isMemToken(left) && isConstToken(right) {
		return &branchAtom{left, right, "<"}
	}
	if isConstToken(left) && isMemToken(right) {
		return &branchAtom{right, left, ">"}
	}
	return nil
}

func parseSimpleRelation(lit string) (string, string, string, bool) {
	text := strings.TrimSpace(lit)
	if strings.HasPrefix(text, "(") && strings.HasSuffix(text, ")") {
		text = strings.TrimSpace(text[1 : len(text)-1])
	}
	m := regexp.MustCompile(`^(.*?)\s(<s|=)\s(.*?)$`).FindStringSubmatch(text)
	if m == nil {
		return "", "", "", false
	}
	return strings.TrimSpace(m[1]), m[2], strings.TrimSpace(m[3]), true
}

// stableLiterals renders sorted string forms of every literal in sol,
// the canonical display order used throughout the report.
func stableLiterals(sol term.Candidate) []string {
	out := make([]string, len(sol))
	for i, lit := range sol {
		out[i] = lit.String()
	}
	sort.Strings(out)
	return out
}

func stableSolutionString(sol term.Candidate) string {
	lits := stableLiterals(sol)
	return "{" + strings.Join(lits, ", ") + "}"
}

func stableClauseString(sol term.Candidate) string {
	lits := stableLiterals(sol)
	if len(lits) == 0 {
		return "true"
	}
	if len(lits) == 1 {
		return lits[0]
	}
	return "(" + strings.Join(lits, " & ") + ")"
}

func stablePoliciesOrString(sols []term.Candidate) string {
	if len(sols) == 0 {
		return "{}"
	}
	if len(sols) == 1 {
		return stableSolutionString(sols[0])
	}
	parts := make([]string, len(sols))
	for i, s := range sols {
		parts[i] = stableSolutionString(s)
	}
	return strings.Join(parts, " OR ")
}

func stableUnifiedConditionString(sols []term.Candidate) string {
	if len(sols) == 0 {
		return "{}"
	}
	if len(sols) == 1 {
		return stableSolutionString(sols[0])
	}
	parts := make([]string, len(sols))
	for i, s := range sols {
		parts[i] = "(" + stableClauseString(s) + ")"
	}
	return "{" + strings.Join(parts, " | ") + "}"
}

func literalComplexity(lit term.Literal) int {
	var size func(*term.Term) int
	size = func(t *term.Term) int {
		switch t.Kind() {
		case term.KindBinary:
			a, b := t.Operands()
			return 1 + size(a) + size(b)
		case term.KindMulti, term.KindNeg:
			c := 1
			for _, k := range t.Children() {
				c += size(k)
			}
			return c
		default:
			return 1
		}
	}
	return size(lit)
}

func solutionComplexity(sol term.Candidate) int {
	c := 0
	for _, lit := range sol {
		c += literalComplexity(lit)
	}
	return c
}

// normEq returns a order-independent key for an equality pair.
func normEq(a, b string) [2]string {
	if a <= b {
		return [2]string{a, b}
	}
	return [2]string{b, a}
}

// compactPolicyCondition detects the classic (x <s k) OR (x = k) => (x
// <=s k) partition across exactly two singleton policies.
func compactPolicyCondition(sols []term.Candidate) string {
	if len(sols) != 2 || len(sols[0]) != 1 || len(sols[1]) != 1 {
		return ""
	}
	l1, l2 := sols[0][0].String(), sols[1][0].String()
	a1, op1, b1, ok1 := parseSimpleRelation(l1)
	a2, op2, b2, ok2 := parseSimpleRelation(l2)
	if !ok1 || !ok2 {
		return ""
	}
	if op1 == "<s" && op2 == "=" && normEq(a1, b1) == normEq(a2, b2) {
		return "{(" + a1 + " <=s " + b1 + ")}"
	}
	if op2 == "<s" && op1 == "=" && normEq(a2, b2) == normEq(a1, b1) {
		return "{(" + a2 + " <=s " + b2 + ")}"
	}
	return ""
}

// SemanticPostFilter iteratively drops solutions whose removal the
// oracle still certifies as necessary (i.e. the remaining solutions
// alone form a necessary disjunction), then collapses to a single
// singleton policy if one alone is already necessary. Grounded
// directly on _semantic_post_filter_solutions.
func SemanticPostFilter(ad oracle.Adapter, log corelog.Logger, solutions []term.Candidate) ([]term.Candidate, error) {
	sols := append([]term.Candidate(nil), solutions...)
	if len(sols) <= 1 {
		return sols, nil
	}

	changed := true
	for changed && len(sols) > 1 {
		changed = false
		for idx := range sols {
			trial := make([]term.Candidate, 0, len(sols)-1)
			trial = append(trial, sols[:idx]...)
			trial = append(trial, sols[idx+1:]...)
			if len(trial) == 0 {
				continue
			}
			necessary, err := ad.CheckNecessity(trial)
			if err != nil {
				return nil, err
			}
			if necessary {
				log.Debug("semantic post-filter removed solution", "solution", sols[idx].String())
				sols = trial
				changed = true
				break
			}
		}
	}

	if len(sols) > 1 {
		var singleton []term.Candidate
		for _, s := range sols {
			necessary, err := ad.CheckNecessity([]term.Candidate{s})
			if err != nil {
				return nil, err
			}
			if necessary {
				singleton = append(singleton, s)
			}
		}
		if len(singleton) > 0 {
			best := singleton[0]
			for _, s := range singleton[1:] {
				if len(s) < len(best) || (len(s) == len(best) && s.String() < best.String()) {
					best = s
				}
			}
			log.Debug("semantic post-filter selected singleton", "solution", best.String())
			sols = []term.Candidate{best}
		}
	}
	return sols, nil
}

func dedupeSolutions(sols []term.Candidate) []term.Candidate {
	seen := map[string]term.Candidate{}
	var order []string
	for _, s := range sols {
		key := strings.Join(stableLiterals(s), "|")
		if _, ok := seen[key]; !ok {
			seen[key] = s
			order = append(order, key)
		}
	}
	out := make([]term.Candidate, len(order))
	for i, k := range order {
		out[i] = seen[k]
	}
	return out
}

// detectPrimaryBranchKey finds the (variable, constant) pair appearing
// across the most distinct relations and solutions, used to order
// alternatives so the branch pivot's true/false policies surface
// first in CT mode.
func detectPrimaryBranchKey(sols []term.Candidate) (string, string, bool) {
	type agg struct {
		rels  map[string]struct{}
		sols  int
		atoms int
	}
	byKey := map[[2]string]*agg{}
	for _, sol := range sols {
		seen := map[[2]string]struct{}{}
		for _, lit := range sol {
			atom := extractBranchAtom(lit.String())
			if atom == nil {
				continue
			}
			key := [2]string{atom.variable, atom.constant}
			a, ok := byKey[key]
			if !ok {
				a = &agg{rels: map[string]struct{}{}}
				byKey[key] = a
			}
			a.rels[atom.relation] = struct{}{}
			a.atoms++
			if _, ok := seen[key]; !ok {
				a.sols++
				seen[key] = struct{}{}
			}
		}
	}
	if len(byKey) == 0 {
		return "", "", false
	}
	type entry struct {
		key [2]string
		a   *agg
	}
	var entries []entry
	for k, a := range byKey {
		entries = append(entries, entry{k, a})
	}
	sort.Slice(entries, func(i, j int) bool {
		ei, ej := entries[i], entries[j]
		if len(ei.a.rels) != len(ej.a.rels) {
			return len(ei.a.rels) > len(ej.a.rels)
		}
		if ei.a.sols != ej.a.sols {
			return ei.a.sols > ej.a.sols
		}
		if ei.a.atoms != ej.a.atoms {
			return ei.a.atoms > ej.a.atoms
		}
		if ei.key[0] != ej.key[0] {
			return ei.key[0] < ej.key[0]
		}
		return ei.key[1] < ej.key[1]
	})
	best := entries[0]
	if best.a.sols < 2 {
		return "", "", false
	}
	return best.key[0], best.key[1], true
}

func branchFirstScore(sol term.Candidate, varKey, constKey string) (int, int, int, int, string) {
	lits := stableLiterals(sol)
	branchHits, nonBranch := 0, 0
	for _, lit := range sol {
		atom := extractBranchAtom(lit.String())
		if atom != nil && atom.variable == varKey && atom.constant == constKey {
			branchHits++
		} else {
			nonBranch++
		}
	}
	has := 0
	if branchHits == 0 {
		has = 1
	}
	return has, nonBranch, len(sol), solutionComplexity(sol), strings.Join(lits, " & ")
}

// OrderSolutions sorts deduplicated solutions by the requested
// selection mode, falling back to size/complexity ranking when
// branch-first mode can't robustly identify a pivot.
func OrderSolutions(sols []term.Candidate, opts Options) ([]term.Candidate, SelectionReason) {
	mode := opts.SelectionMode
	if mode == "" {
		if opts.CTMode {
			mode = "branch-first"
		} else {
			mode = "size-complexity"
		}
	}

	if mode == "branch-first" {
		var varKey, constKey string
		var found bool
		if opts.CTMode {
			varKey, constKey, found = detectPrimaryBranchKey(sols)
		}
		if found {
			ordered := append([]term.Candidate(nil), sols...)
			sort.SliceStable(ordered, func(i, j int) bool {
				a1, a2, a3, a4, a5 := branchFirstScore(ordered[i], varKey, constKey)
				b1, b2, b3, b4, b5 := branchFirstScore(ordered[j], varKey, constKey)
				if a1 != b1 {
					return a1 < b1
				}
				if a2 != b2 {
					return a2 < b2
				}
				if a3 != b3 {
					return a3 < b3
				}
				if a4 != b4 {
					return a4 < b4
				}
				return a5 < b5
			})
			return ordered, SelectionReason{
				Mode:      "branch-first",
				Reason:    "prioritized policies matching branch pivot",
				BranchVar: varKey,
				BranchVal: constKey,
			}
		}
		ordered := sizeComplexityOrder(sols)
		return ordered, SelectionReason{Mode: "size-complexity", Reason: "fallback ranking by literals count and complexity (branch pivot not robustly identified)"}
	}

	ordered := sizeComplexityOrder(sols)
	return ordered, SelectionReason{Mode: "size-complexity", Reason: "fallback ranking by literals count and complexity"}
}

func sizeComplexityOrder(sols []term.Candidate) []term.Candidate {
	ordered := append([]term.Candidate(nil), sols...)
	sort.SliceStable(ordered, func(i, j int) bool {
		si, sj := ordered[i], ordered[j]
		if len(si) != len(sj) {
			return len(si) < len(sj)
		}
		ci, cj := solutionComplexity(si), solutionComplexity(sj)
		if ci != cj {
			return ci < cj
		}
		return strings.Join(stableLiterals(si), " & ") < strings.Join(stableLiterals(sj), " & ")
	})
	return ordered
}

// candidateConsistent reports whether the union of two policies is
// jointly satisfiable, used to build the pairwise compatibility
// table.
func candidateConsistent(checkSat func(term.Candidate) (bool, error), a, b term.Candidate) bool {
	union := append(append(term.Candidate(nil), a...), b...)
	ok, err := checkSat(term.NormalizeCandidate(union))
	if err != nil {
		return false
	}
	return ok
}

// BuildSemantics assembles the policy table, pairwise compatibility
// matrix, and branch partitions for the ordered solution set.
func BuildSemantics(ordered []term.Candidate, checkSat func(term.Candidate) (bool, error)) Semantics {
	if len(ordered) == 0 {
		return Semantics{OperatorBetweenPolicies: "OR"}
	}
	ids := make([]string, len(ordered))
	for i := range ordered {
		ids[i] = "P" + strconv(i+1)
	}
	policies := make([]Policy, len(ordered))
	for i, sol := range ordered {
		policies[i] = Policy{
			ID:         ids[i],
			Formula:    stableSolutionString(sol),
			Literals:   stableLiterals(sol),
			Complexity: solutionComplexity(sol),
		}
	}

	var pairwise []PairwiseCompatibility
	for i := 0; i < len(ordered); i++ {
		for j := i + 1; j < len(ordered); j++ {
			compatible := candidateConsistent(checkSat, ordered[i], ordered[j])
			relation := "mutually_exclusive"
			if compatible {
				relation = "can_coexist"
			}
			pairwise = append(pairwise, PairwiseCompatibility{Left: ids[i], Right: ids[j], CompatibleWithAnd: compatible, Relation: relation})
		}
	}

	type fam struct {
		lt, eq, gt []string
	}
	families := map[[2]string]*fam{}
	var order [][2]string
	for i, sol := range ordered {
		pid := ids[i]
		for _, lit := range sol {
			atom := extractBranchAtom(lit.String())
			if atom == nil {
				continue
			}
			key := [2]string{atom.variable, atom.constant}
			f, ok := families[key]
			if !ok {
				f = &fam{}
				families[key] = f
				order = append(order, key)
			}
			switch atom.relation {
			case "<":
				f.lt = append(f.lt, pid)
			case "=":
				f.eq = append(f.eq, pid)
			case ">":
				f.gt = append(f.gt, pid)
			}
		}
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i][0] != order[j][0] {
			return order[i][0] < order[j][0]
		}
		return order[i][1] < order[j][1]
	})
	var partitions []BranchPartition
	for _, key := range order {
		f := families[key]
		if len(f.lt) == 0 && len(f.eq) == 0 && len(f.gt) == 0 {
			continue
		}
		partitions = append(partitions, BranchPartition{
			Variable:      key[0],
			PivotConstant: key[1],
			LessThan:      uniqueSorted(f.lt),
			Equal:         uniqueSorted(f.eq),
			GreaterThan:   uniqueSorted(f.gt),
			CanMergeToLeq: len(f.lt) > 0 && len(f.eq) > 0,
			CanMergeToGeq: len(f.gt) > 0 && len(f.eq) > 0,
		})
	}

	return Semantics{
		OperatorBetweenPolicies: "OR",
		PolicyIDs:               ids,
		SelectedPolicyID:        ids[0],
		OrExpression:            strings.Join(ids, " OR "),
		Policies:                policies,
		PairwiseCompatibility:   pairwise,
		BranchPartitions:        partitions,
	}
}

func uniqueSorted(ss []string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, s := range ss {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

func strconv(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

// parseMemToken splits an "@[0xADDR,N]" token into address and size.
func parseMemToken(tok string) (string, int, bool) {
	m := regexp.MustCompile(`^@\[(0x[0-9a-fA-F]+),([0-9]+)\]$`).FindStringSubmatch(strings.TrimSpace(tok))
	if m == nil {
		return "", 0, false
	}
	n := 0
	for _, r := range m[2] {
		n = n*10 + int(r-'0')
	}
	return m[1], n, true
}

// DeriveBranchGuidedPolicies builds, for every detected branch
// partition, the explicit true/false-branch policy pair (const <s var
// vs. var <s const OR var = const) and CT-evaluates each side, the
// same derivation _derive_branch_guided_policies performs.
func DeriveBranchGuidedPolicies(ctx *term.Context, ad oracle.Adapter, ctMode bool, semantics Semantics) ([]BranchGuidedPolicy, error) {
	if !ctMode {
		return nil, nil
	}
	var out []BranchGuidedPolicy
	for _, part := range semantics.BranchPartitions {
		addr, size, ok := parseMemToken(part.Variable)
		if !ok || part.PivotConstant == "" {
			continue
		}
		v, err := ctx.DeclareVar(addr+":"+strconv(size), 0)
		if err != nil {
			continue
		}
		c, err := ctx.DeclareConst(part.PivotConstant)
		if err != nil {
			continue
		}
		if v.Width() != c.Width() {
			continue
		}
		gt, err := ctx.CreateBinaryTerm(term.Lower, c, v)
		if err != nil {
			continue
		}
		lt, err := ctx.CreateBinaryTerm(term.Lower, v, c)
		if err != nil {
			continue
		}
		eq, err := ctx.CreateBinaryTerm(term.Equal, v, c)
		if err != nil {
			continue
		}
		leq := ctx.CreateMultiTerm(term.Or, []*term.Term{lt, eq})

		trueTerms := term.Candidate{gt}
		falseTerms := term.Candidate{leq}
		trueCT, errT := ad.EvaluateCTPolicy(trueTerms)
		falseCT, errF := ad.EvaluateCTPolicy(falseTerms)
		var trueCTPtr, falseCTPtr *oracle.CTResult
		if errT == nil {
			trueCTPtr = &trueCT
		}
		if errF == nil {
			falseCTPtr = &falseCT
		}
		recommended := errT == nil && errF == nil && trueCT.Status == oracle.Secure && falseCT.Status == oracle.Secure

		out = append(out, BranchGuidedPolicy{
			Variable:         part.Variable,
			PivotConstant:    part.PivotConstant,
			TrueFormula:      stableSolutionString(trueTerms),
			TrueMeaning:      part.Variable + " >s " + part.PivotConstant,
			TrueCT:           trueCTPtr,
			FalseFormula:     stableSolutionString(falseTerms),
			FalseMeaning:     part.Variable + " <=s " + part.PivotConstant,
			FalseCT:          falseCTPtr,
			RecommendedSplit: recommended,
		})
	}
	return out, nil
}

// ValidateCTPolicy runs ct-evaluate on the empty baseline and the
// selected policy for comparison.
func ValidateCTPolicy(ad oracle.Adapter, ctMode bool, selected term.Candidate) (*CTValidation, error) {
	if !ctMode {
		return nil, nil
	}
	baseline, err := ad.EvaluateCTPolicy(term.Candidate{})
	if err != nil {
		return nil, err
	}
	sel, err := ad.EvaluateCTPolicy(selected)
	if err != nil {
		return nil, err
	}
	return &CTValidation{Baseline: baseline, Selected: sel}, nil
}

// Finalize runs the complete post-search pipeline: semantic
// redundancy removal, necessity re-verification, ordering, compact
// condition detection, semantics/branch-guided derivation, and CT
// validation, returning the user-facing ResultSummary. Grounded on
// _finalize_nas_result.
func Finalize(ad oracle.Adapter, checkSat func(term.Candidate) (bool, error), log corelog.Logger, st *stats.Stats, opts Options, rawSolutions []term.Candidate, ctx *term.Context) (*ResultSummary, error) {
	original := append([]term.Candidate(nil), rawSolutions...)
	general, err := SemanticPostFilter(ad, log, original)
	if err != nil {
		return nil, err
	}
	necessary, err := ad.CheckNecessity(general)
	if err != nil {
		return nil, err
	}
	if !necessary {
		log.Warn("semantic post-filter broke necessity; restoring original result set")
		general = original
	}

	deduped := dedupeSolutions(general)
	ordered, selReason := OrderSolutions(deduped, opts)

	var selected term.Candidate
	var alternatives []term.Candidate
	if len(ordered) > 0 {
		selected = ordered[0]
		alternatives = ordered[1:]
	}

	generalExpr := stablePoliciesOrString(ordered)
	unifiedExpr := stableUnifiedConditionString(ordered)
	compactExpr := compactPolicyCondition(ordered)
	finalCondition := generalExpr
	if compactExpr != "" {
		finalCondition = compactExpr
	}

	log.Info("obtained a necessary result set")
	log.Result("nas conditions (all)", "expr", unifiedExpr)
	if selected != nil {
		log.Result("selected constraint (necessary & sufficient)", "expr", finalCondition)
	} else {
		log.Result("general nas condition", "solutions", general)
	}

	semantics := BuildSemantics(ordered, checkSat)
	guided, err := DeriveBranchGuidedPolicies(ctx, ad, opts.CTMode, semantics)
	if err != nil {
		return nil, err
	}
	for _, g := range guided {
		if g.RecommendedSplit {
			log.Result("branch-guided split", "true", g.TrueFormula, "false", g.FalseFormula)
		}
	}

	if st != nil {
		st.SolutionClauses = len(ordered)
		if selected != nil {
			st.FinalConstraints = 1
		}
	}

	var ctValidation *CTValidation
	if selected != nil {
		ctValidation, err = ValidateCTPolicy(ad, opts.CTMode, selected)
		if err != nil {
			return nil, err
		}
	}

	alternativeStrs := make([]string, len(alternatives))
	for i, a := range alternatives {
		alternativeStrs[i] = stableSolutionString(a)
	}
	allStrs := make([]string, len(ordered))
	for i, a := range ordered {
		allStrs[i] = stableSolutionString(a)
	}

	summary := &ResultSummary{
		PolicyCondition:        generalExpr,
		PolicyConditionUnified: unifiedExpr,
		PolicyConditionCompact: compactExpr,
		Alternatives:           alternativeStrs,
		NASConditionsAll:       allStrs,
		CTValidation:           ctValidation,
		PolicySemantics:        semantics,
		BranchGuidedPolicies:   guided,
		SelectionMode:          selReason.Mode,
		SelectionReason:        selReason,
		Stats:                  st,
	}
	if selected != nil {
		summary.SelectedPolicy = finalCondition
		summary.SelectedPolicyRepresentative = stableSolutionString(selected)
	}
	return summary, nil
}
