package analyze

// stdlibModules lists top-level standard library module names for
// python 3.11 through 3.14, including private modules that map to C
// extensions.
var stdlibModules = newSet(
	"abc", "aifc", "argparse", "array", "ast", "asyncio", "atexit",
	"base64", "bdb", "binascii", "bisect", "builtins", "bz2",
	"calendar", "cgi", "cgitb", "chunk", "cmath", "cmd", "code",
	"codecs", "codeop", "collections", "colorsys", "compileall",
	"concurrent", "configparser", "contextlib", "contextvars", "copy",
	"copyreg", "cProfile", "crypt", "csv", "ctypes", "curses",
	"dataclasses", "datetime", "dbm", "decimal", "difflib", "dis",
	"doctest", "email", "encodings", "enum", "errno", "faulthandler",
	"fcntl", "filecmp", "fileinput", "fnmatch", "fractions", "ftplib",
	"functools", "gc", "getopt", "getpass", "gettext", "glob",
	"graphlib", "grp", "gzip", "hashlib", "heapq", "hmac", "html",
	"http", "idlelib", "imaplib", "imghdr", "importlib", "inspect",
	"io", "ipaddress", "itertools", "json", "keyword", "lib2to3",
	"linecache", "locale", "logging", "lzma", "mailbox", "mailcap",
	"marshal", "math", "mimetypes", "mmap", "modulefinder",
	"multiprocessing", "netrc", "nis", "nntplib", "numbers",
	"operator", "optparse", "os", "ossaudiodev", "pathlib", "pdb",
	"pickle", "pickletools", "pipes", "pkgutil", "platform",
	"plistlib", "poplib", "posix", "posixpath", "pprint", "profile",
	"pstats", "pty", "pwd", "py_compile", "pyclbr", "pydoc", "queue",
	"quopri", "random", "re", "readline", "reprlib", "resource",
	"rlcompleter", "runpy", "sched", "secrets", "select", "selectors",
	"shelve", "shlex", "shutil", "signal", "site", "smtpd", "smtplib",
	"sndhdr", "socket", "socketserver", "spwd", "sqlite3", "ssl",
	"stat", "statistics", "string", "stringprep", "struct",
	"subprocess", "sunau", "symtable", "sys", "sysconfig", "syslog",
	"tabnanny", "tarfile", "telnetlib", "tempfile", "termios", "test",
	"textwrap", "threading", "time", "timeit", "tkinter", "token",
	"tokenize", "tomllib", "trace", "traceback", "tracemalloc", "tty",
	"turtle", "turtledemo", "types", "typing", "unicodedata",
	"unittest", "urllib", "uu", "uuid", "venv", "warnings", "wave",
	"weakref", "webbrowser", "winreg", "winsound", "wsgiref",
	"xdrlib", "xml", "xmlrpc", "zipapp", "zipfile", "zipimport",
	"zlib", "zoneinfo",

	"_abc", "_asyncio", "_bisect", "_blake2", "_bz2", "_codecs",
	"_collections", "_contextvars", "_csv", "_ctypes", "_datetime",
	"_decimal", "_elementtree", "_functools", "_hashlib", "_heapq",
	"_io", "_json", "_locale", "_lsprof", "_lzma", "_md5",
	"_multibytecodec", "_multiprocessing", "_opcode", "_operator",
	"_pickle", "_posixshmem", "_posixsubprocess", "_queue", "_random",
	"_sha1", "_sha256", "_sha512", "_sha3", "_signal", "_socket",
	"_sqlite3", "_sre", "_ssl", "_stat", "_statistics", "_struct",
	"_symtable", "_thread", "_tracemalloc", "_typing", "_uuid",
	"_weakref", "_zoneinfo",
)

// stdlibToExtension maps stdlib modules to the C extension modules they
// require, including transitive dependencies (inspect pulls in _opcode
// through dis).
var stdlibToExtension = map[string][]string{
	"hashlib":         {"_hashlib", "_md5", "_sha1", "_sha256", "_sha512", "_sha3", "_blake2"},
	"ssl":             {"_ssl"},
	"sqlite3":         {"_sqlite3"},
	"json":            {"_json"},
	"pickle":          {"_pickle"},
	"datetime":        {"_datetime"},
	"decimal":         {"_decimal"},
	"ctypes":          {"_ctypes"},
	"lzma":            {"_lzma"},
	"bz2":             {"_bz2"},
	"zlib":            {"zlib"},
	"xml":             {"_elementtree", "pyexpat"},
	"csv":             {"_csv"},
	"asyncio":         {"_asyncio"},
	"multiprocessing": {"_multiprocessing", "_posixshmem"},
	"collections":     {"_collections"},
	"functools":       {"_functools"},
	"itertools":       {"itertools"},
	"math":            {"math", "cmath"},
	"struct":          {"_struct"},
	"array":           {"array"},
	"select":          {"select"},
	"socket":          {"_socket"},
	"unicodedata":     {"unicodedata"},
	"binascii":        {"binascii"},
	"mmap":            {"mmap"},
	"fcntl":           {"fcntl"},
	"grp":             {"grp"},
	"pwd":             {"pwd"},
	"readline":        {"readline"},
	"uuid":            {"_uuid"},
	"statistics":      {"_statistics"},
	"typing":          {"_typing"},
	"inspect":         {"_opcode"},
	"dis":             {"_opcode"},
	"subprocess":      {"_posixsubprocess", "select", "fcntl"},
	"random":          {"_random"},
	"heapq":           {"_heapq"},
	"bisect":          {"_bisect"},
	"contextvars":     {"_contextvars"},
	"zoneinfo":        {"_zoneinfo"},
}

// coreModules are never disabled or removed. zlib stays because the
// zipped stdlib needs it for decompression.
var coreModules = newSet(
	"_abc", "_io", "_sre", "_codecs", "_collections", "_functools",
	"_locale", "_operator", "_signal", "_stat", "_symtable", "_thread",
	"_tracemalloc", "_weakref", "atexit", "errno", "faulthandler",
	"itertools", "posix", "pwd", "time", "zlib",
)

// stdlibModulePaths maps pure-python stdlib packages to the paths they
// occupy under lib/pythonX.Y/, used when pruning unused modules.
// ensurepip is intentionally absent from the removable set.
var stdlibModulePaths = map[string][]string{
	"tkinter":         {"tkinter/", "turtle.py", "turtledemo/"},
	"idlelib":         {"idlelib/"},
	"test":            {"test/"},
	"lib2to3":         {"lib2to3/"},
	"distutils":       {"distutils/"},
	"curses":          {"curses/"},
	"dbm":             {"dbm/"},
	"multiprocessing": {"multiprocessing/"},
	"concurrent":      {"concurrent/"},
	"asyncio":         {"asyncio/"},
	"email":           {"email/"},
	"html":            {"html/"},
	"http":            {"http/"},
	"json":            {"json/"},
	"logging":         {"logging/"},
	"unittest":        {"unittest/"},
	"urllib":          {"urllib/"},
	"xml":             {"xml/"},
	"xmlrpc":          {"xmlrpc/"},
	"ctypes":          {"ctypes/"},
	"sqlite3":         {"sqlite3/"},
	"pydoc_data":      {"pydoc_data/"},
}

func newSet(names ...string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, name := range names {
		set[name] = true
	}
	return set
}
