package lower

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/rickypai/natsort"
)

// foreignSig describes one predeclarable C runtime symbol: its parameter
// types, return type, and whether it is variadic.
type foreignSig struct {
	params   []types.Type
	ret      types.Type
	variadic bool
}

var (
	i8p = types.NewPointer(types.I8)
	i32 = types.I32
	i64 = types.I64
)

// foreignTable is the fixed closed list of C runtime symbols user code may
// call by name (spec §6). Argument/return types follow C ABI convention:
// i32 for int-sized slots, i64 where noted, i8* for opaque pointers.
var foreignTable = map[string]foreignSig{
	"malloc":   {params: []types.Type{i64}, ret: i8p},
	"calloc":   {params: []types.Type{i64, i64}, ret: i8p},
	"realloc":  {params: []types.Type{i8p, i64}, ret: i8p},
	"free":     {params: []types.Type{i8p}, ret: types.Void},
	"puts":     {params: []types.Type{i8p}, ret: i32},
	"putchar":  {params: []types.Type{i32}, ret: i32},
	"open":     {params: []types.Type{i8p, i32}, ret: i32, variadic: true},
	"close":    {params: []types.Type{i32}, ret: i32},
	"read":     {params: []types.Type{i32, i8p, i64}, ret: i64},
	"write":    {params: []types.Type{i32, i8p, i64}, ret: i64},
	"lseek":    {params: []types.Type{i32, i64, i32}, ret: i64},
	"fsync":    {params: []types.Type{i32}, ret: i32},
	"ftruncate": {params: []types.Type{i32, i64}, ret: i32},

	"socket":      {params: []types.Type{i32, i32, i32}, ret: i32},
	"bind":        {params: []types.Type{i32, i8p, i32}, ret: i32},
	"listen":      {params: []types.Type{i32, i32}, ret: i32},
	"accept":      {params: []types.Type{i32, i8p, i8p}, ret: i32},
	"connect":     {params: []types.Type{i32, i8p, i32}, ret: i32},
	"send":        {params: []types.Type{i32, i8p, i64, i32}, ret: i64},
	"recv":        {params: []types.Type{i32, i8p, i64, i32}, ret: i64},
	"sendto":      {params: []types.Type{i32, i8p, i64, i32, i8p, i32}, ret: i64},
	"recvfrom":    {params: []types.Type{i32, i8p, i64, i32, i8p, i8p}, ret: i64},
	"shutdown":    {params: []types.Type{i32, i32}, ret: i32},
	"setsockopt":  {params: []types.Type{i32, i32, i32, i8p, i32}, ret: i32},
	"getsockopt":  {params: []types.Type{i32, i32, i32, i8p, i8p}, ret: i32},
	"inet_pton":   {params: []types.Type{i32, i8p, i8p}, ret: i32},
	"inet_ntop":   {params: []types.Type{i32, i8p, i8p, i32}, ret: i8p},
	"htons":       {params: []types.Type{i32}, ret: i32},
	"ntohs":       {params: []types.Type{i32}, ret: i32},
	"htonl":       {params: []types.Type{i32}, ret: i32},
	"ntohl":       {params: []types.Type{i32}, ret: i32},
	"getaddrinfo":  {params: []types.Type{i8p, i8p, i8p, i8p}, ret: i32},
	"freeaddrinfo": {params: []types.Type{i8p}, ret: types.Void},

	"fork":   {ret: i32},
	"execve": {params: []types.Type{i8p, i8p, i8p}, ret: i32},
	"waitpid": {params: []types.Type{i32, i8p, i32}, ret: i32},
	"exit":   {params: []types.Type{i32}, ret: types.Void},
	"getpid": {ret: i32},
	"kill":   {params: []types.Type{i32, i32}, ret: i32},
	"getenv": {params: []types.Type{i8p}, ret: i8p},
	"setenv": {params: []types.Type{i8p, i8p, i32}, ret: i32},
	"unsetenv": {params: []types.Type{i8p}, ret: i32},
	"time":   {params: []types.Type{i8p}, ret: i64},
	"gettimeofday": {params: []types.Type{i8p, i8p}, ret: i32},
	"nanosleep":    {params: []types.Type{i8p, i8p}, ret: i32},

	"mmap":     {params: []types.Type{i8p, i64, i32, i32, i32, i64}, ret: i8p},
	"munmap":   {params: []types.Type{i8p, i64}, ret: i32},
	"mprotect": {params: []types.Type{i8p, i64, i32}, ret: i32},

	"pthread_create":         {params: []types.Type{i8p, i8p, i8p, i8p}, ret: i32},
	"pthread_join":           {params: []types.Type{i64, i8p}, ret: i32},
	"pthread_mutex_init":     {params: []types.Type{i8p, i8p}, ret: i32},
	"pthread_mutex_lock":     {params: []types.Type{i8p}, ret: i32},
	"pthread_mutex_unlock":   {params: []types.Type{i8p}, ret: i32},
	"pthread_cond_wait":      {params: []types.Type{i8p, i8p}, ret: i32},
	"pthread_cond_signal":    {params: []types.Type{i8p}, ret: i32},

	"sin":  {params: []types.Type{types.Double}, ret: types.Double},
	"cos":  {params: []types.Type{types.Double}, ret: types.Double},
	"tan":  {params: []types.Type{types.Double}, ret: types.Double},
	"pow":  {params: []types.Type{types.Double, types.Double}, ret: types.Double},
	"exp":  {params: []types.Type{types.Double}, ret: types.Double},
	"log":  {params: []types.Type{types.Double}, ret: types.Double},
	"fabs": {params: []types.Type{types.Double}, ret: types.Double},

	"system":  {params: []types.Type{i8p}, ret: i32},
	"uname":   {params: []types.Type{i8p}, ret: i32},
	"syscall": {params: []types.Type{i64}, ret: i64, variadic: true},

	"strlen":  {params: []types.Type{i8p}, ret: i64},
	"strcpy":  {params: []types.Type{i8p, i8p}, ret: i8p},
	"strcmp":  {params: []types.Type{i8p, i8p}, ret: i32},
	"memcpy":  {params: []types.Type{i8p, i8p, i64}, ret: i8p},
	"memcmp":  {params: []types.Type{i8p, i8p, i64}, ret: i32},
	"memmove": {params: []types.Type{i8p, i8p, i64}, ret: i8p},
	"memset":  {params: []types.Type{i8p, i32, i64}, ret: i8p},
	"strstr":  {params: []types.Type{i8p, i8p}, ret: i8p},
	"strcat":  {params: []types.Type{i8p, i8p}, ret: i8p},
	"strncpy": {params: []types.Type{i8p, i8p, i64}, ret: i8p},
	"fchmod":  {params: []types.Type{i32, i32}, ret: i32},

	"atoi": {params: []types.Type{i8p}, ret: i32},
	"atof": {params: []types.Type{i8p}, ret: types.Double},

	"printf": {params: []types.Type{i8p}, ret: i32, variadic: true},
	"sprintf": {params: []types.Type{i8p, i8p}, ret: i32, variadic: true},
}

// declareForeign returns the module-level declaration for a foreign
// runtime symbol, declaring it on first use. name must be present in
// foreignTable (checked by the caller via isForeign).
func (gen *Generator) declareForeign(name string) *ir.Func {
	if f, ok := gen.ffiDeclared[name]; ok {
		return f
	}
	sig := foreignTable[name]
	f := gen.m.NewFunc(name, sig.ret, toParams(sig.params)...)
	f.Sig.Variadic = sig.variadic
	gen.ffiDeclared[name] = f
	return f
}

// isForeign reports whether name names a predeclarable foreign symbol.
func isForeign(name string) bool {
	_, ok := foreignTable[name]
	return ok
}

func toParams(ts []types.Type) []*ir.Param {
	params := make([]*ir.Param, len(ts))
	for i, t := range ts {
		params[i] = ir.NewParam("", t)
	}
	return params
}

// sortedForeignNames returns the names in used in deterministic
// natural-sort order.
func sortedForeignNames(used map[string]bool) []string {
	var names []string
	for name := range used {
		names = append(names, name)
	}
	natsort.Strings(names)
	return names
}
