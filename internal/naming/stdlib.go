package naming

// StdlibModules lists top-level Python standard library modules that are
// importable on every supported interpreter.
var StdlibModules = []string{
	"abc", "argparse", "array", "ast", "asyncio", "base64", "bisect", "builtins",
	"bz2", "calendar", "cmath", "cmd", "code", "codecs", "collections",
	"colorsys", "compileall", "concurrent", "configparser", "contextlib", "copy",
	"copyreg", "csv", "ctypes", "curses", "dataclasses", "datetime", "dbm",
	"decimal", "difflib", "dis", "doctest", "email", "encodings", "enum",
	"errno", "faulthandler", "fcntl", "filecmp", "fileinput", "fnmatch",
	"fractions", "ftplib", "functools", "gc", "getopt", "getpass", "gettext",
	"glob", "grp", "gzip", "hashlib", "heapq", "hmac", "html", "http",
	"imaplib", "importlib", "inspect", "io", "ipaddress", "itertools", "json",
	"keyword", "linecache", "locale", "logging", "lzma", "mailbox", "marshal",
	"math", "mimetypes", "mmap", "multiprocessing", "netrc", "numbers",
	"operator", "optparse", "os", "pathlib", "pdb", "pickle", "pkgutil",
	"platform", "plistlib", "poplib", "posix", "pprint", "profile", "pstats",
	"pty", "pwd", "py_compile", "queue", "quopri", "random", "re", "readline",
	"reprlib", "resource", "runpy", "sched", "secrets", "select", "selectors",
	"shelve", "shlex", "shutil", "signal", "site", "smtplib", "socket",
	"socketserver", "sqlite3", "ssl", "stat", "statistics", "string",
	"stringprep", "struct", "subprocess", "symtable", "sys", "sysconfig",
	"syslog", "tabnanny", "tarfile", "tempfile", "termios", "test", "textwrap",
	"threading", "time", "timeit", "tkinter", "token", "tokenize", "trace",
	"traceback", "tracemalloc", "tty", "turtle", "types", "typing",
	"unicodedata", "unittest", "urllib", "uuid", "venv", "warnings", "wave",
	"weakref", "webbrowser", "wsgiref", "xml", "xmlrpc", "zipapp", "zipfile",
	"zipimport", "zlib",
}
