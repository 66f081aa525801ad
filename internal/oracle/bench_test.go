package oracle

import (
	"strings"
	"testing"

	"github.com/ppiankov/conative/internal/policy"
)

func mustBaseline() *policy.Policy {
	return policy.BaselinePolicy()
}

func BenchmarkEvaluate_Compliant(b *testing.B) {
	o := newOracle(b)
	p := proposal(`fn main() { println!("Hello"); }`, "src/main.rs")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		o.Evaluate(p)
	}
}

func BenchmarkEvaluate_Violation(b *testing.B) {
	o := newOracle(b)
	p := proposal(`export const foo: string = 'bar'; password = "supersecret123456"`, "src/utils.ts", "package.json")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		o.Evaluate(p)
	}
}

func BenchmarkEvaluate_LargeContent(b *testing.B) {
	o := newOracle(b)
	p := proposal(strings.Repeat("pub fn handler(req: Request) -> Response { todo!() }\n", 2000), "src/lib.rs")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		o.Evaluate(p)
	}
}
