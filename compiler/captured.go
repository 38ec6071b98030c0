package compiler

import "github.com/VFabricio/rinha-vm/ast"

// computeCaptured computes a function body's free-variable set (§4.1
// "computed captured parameters"): every Var reference not already
// bound by a name in env, where env starts out holding the function's
// own parameter names.
//
// Grounded directly on original_source/src/compiler.rs's
// compute_captured_parameters: same recursive structure, term kind
// for term kind, the only difference being an ordered, deduplicated
// slice in place of a HashSet so closure construction (vm.buildClosure)
// builds its capture list in a deterministic order.
func computeCaptured(term ast.Term, env map[string]struct{}) []string {
	var names []string
	seen := make(map[string]struct{})
	add := func(extra []string) {
		for _, n := range extra {
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			names = append(names, n)
		}
	}

	switch t := term.(type) {
	case *ast.Int, *ast.Bool, *ast.Str, *ast.Error:
		return nil
	case *ast.First:
		return computeCaptured(t.Value, env)
	case *ast.Second:
		return computeCaptured(t.Value, env)
	case *ast.Tuple:
		add(computeCaptured(t.First, cloneEnv(env)))
		add(computeCaptured(t.Second, env))
	case *ast.Binary:
		add(computeCaptured(t.Lhs, cloneEnv(env)))
		add(computeCaptured(t.Rhs, env))
	case *ast.If:
		add(computeCaptured(t.Condition, cloneEnv(env)))
		add(computeCaptured(t.Then, cloneEnv(env)))
		add(computeCaptured(t.Otherwise, env))
	case *ast.Print:
		return computeCaptured(t.Value, env)
	case *ast.Let:
		add(computeCaptured(t.Value, cloneEnv(env)))
		env[t.Name] = struct{}{}
		add(computeCaptured(t.Next, env))
	case *ast.Call:
		add(computeCaptured(t.Callee, cloneEnv(env)))
		for _, arg := range t.Arguments {
			add(computeCaptured(arg, cloneEnv(env)))
		}
	case *ast.Function:
		for _, p := range t.Parameters {
			env[p.Text] = struct{}{}
		}
		return computeCaptured(t.Value, env)
	case *ast.Var:
		if _, ok := env[t.Text]; !ok {
			return []string{t.Text}
		}
		return nil
	}
	return names
}

func cloneEnv(env map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(env))
	for k := range env {
		out[k] = struct{}{}
	}
	return out
}
