package banjo

type problemElement struct {
	problem BadExpr
	next    *problemElement
}

// Insertion ordered set of problems, bucketed by hash.
type ProblemSet struct {
	buckets map[uint64][]*problemElement
	head    *problemElement
	tail    *problemElement
	count   int
}

func NewProblemSet(problems ...BadExpr) *ProblemSet {
	self := &ProblemSet{}
	for _, problem := range problems {
		self.Insert(problem)
	}
	return self
}

// Returns nil on lookup failure.
func (self *ProblemSet) lookupWithHash(problem BadExpr, hash uint64) *problemElement {
	bucket, ok := self.buckets[hash]
	if !ok || len(bucket) == 0 {
		return nil
	}

	for _, element := range bucket {
		if element.problem.Equal(problem) {
			return element
		}
	}

	return nil
}

func (self *ProblemSet) Contains(problem BadExpr) bool {
	return self.lookupWithHash(problem, problem.Hash()) != nil
}

// Reports whether the problem was not already present.
func (self *ProblemSet) Insert(problem BadExpr) bool {
	if self.buckets == nil {
		self.buckets = make(map[uint64][]*problemElement)
	}

	hash := problem.Hash()
	if self.lookupWithHash(problem, hash) != nil {
		return false
	}

	element := &problemElement{problem: problem}
	self.buckets[hash] = append(self.buckets[hash], element)
	if self.head == nil {
		self.head = element
	} else {
		self.tail.next = element
	}
	self.tail = element
	self.count += 1
	return true
}

func (self *ProblemSet) Count() int {
	return self.count
}

func (self *ProblemSet) Problems() []BadExpr {
	result := make([]BadExpr, 0, self.count)
	for element := self.head; element != nil; element = element.next {
		result = append(result, element.problem)
	}
	return result
}

// Collects every bad expression reachable from e. Shared sub-trees are
// visited once.
func GatherProblems(e CoreExpr) []BadExpr {
	set := &ProblemSet{}
	visited := map[CoreExpr]bool{}
	var walk func(CoreExpr)
	walk = func(e CoreExpr) {
		if visited[e] {
			return
		}
		visited[e] = true
		if bad, ok := e.(*CoreBad); ok {
			set.Insert(bad.Problem())
			return
		}
		eachChild(e, walk)
	}
	walk(e)
	return set.Problems()
}

// Keeps the ranges of each problem that belong to file, dropping problems
// left without any range.
func FilterProblems(problems []BadExpr, file string) []BadExpr {
	var result []BadExpr
	for _, problem := range problems {
		ranges := problem.Ranges.InFile(file)
		if len(ranges) == 0 {
			continue
		}
		result = append(result, BadExpr{Message: problem.Message, Ranges: ranges})
	}
	return result
}
